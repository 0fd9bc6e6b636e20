// Package metadata resolves a free-text title against TMDb into a canonical
// film record.
package metadata

import (
	"context"
	"errors"
	"fmt"

	tmdb "github.com/ryanbradynd05/go-tmdb"
)

// Kind distinguishes feature films from TV shows.
type Kind string

const (
	KindMovie Kind = "movie"
	KindShow  Kind = "show"
)

// FilmRecord is the canonical terminal artifact returned to the caller. It is
// built fresh per request and never mutated after construction.
type FilmRecord struct {
	Title       string  `json:"title"`
	Kind        Kind    `json:"kind"`
	ReleaseDate string  `json:"release_date"`
	Overview    string  `json:"overview"`
	TMDbID      int     `json:"tmdb_id"`
	PosterURL   string  `json:"poster_url,omitempty"`
	Rating      float32 `json:"rating,omitempty"`
}

// ErrNotFound means neither the movie nor the show search matched the title.
var ErrNotFound = errors.New("no metadata match for title")

// UpstreamError reports a TMDb failure, as opposed to an empty result set.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string { return fmt.Sprintf("tmdb %s: %v", e.Op, e.Err) }

func (e *UpstreamError) Unwrap() error { return e.Err }

const posterBaseURL = "https://image.tmdb.org/t/p/w500"

// Client is the slice of the TMDb API the resolver needs (matches *tmdb.TMDb).
type Client interface {
	SearchMovie(name string, options map[string]string) (*tmdb.MovieSearchResults, error)
	SearchTv(name string, options map[string]string) (*tmdb.TvSearchResults, error)
	GetTvInfo(id int, options map[string]string) (*tmdb.TV, error)
}

type Resolver struct {
	client   Client
	language string
}

func NewResolver(client Client) *Resolver {
	return &Resolver{
		client:   client,
		language: "en-US",
	}
}

// Resolve looks the title up as a movie first and falls back to a TV search
// only when the movie result set is empty. The first row of whichever set is
// non-empty wins. The title is passed verbatim; there is no fuzzy retry.
func (r *Resolver) Resolve(ctx context.Context, title string) (*FilmRecord, error) {
	options := map[string]string{"language": r.language}

	movies, err := r.client.SearchMovie(title, options)
	if err != nil {
		return nil, &UpstreamError{Op: "search movie", Err: err}
	}
	if movies != nil && len(movies.Results) > 0 {
		return movieRecord(&movies.Results[0]), nil
	}

	shows, err := r.client.SearchTv(title, options)
	if err != nil {
		return nil, &UpstreamError{Op: "search tv", Err: err}
	}
	if shows == nil || len(shows.Results) == 0 {
		return nil, ErrNotFound
	}

	show := shows.Results[0]
	record := &FilmRecord{
		Title:       show.Name,
		Kind:        KindShow,
		ReleaseDate: show.FirstAirDate,
		TMDbID:      show.ID,
		PosterURL:   posterURL(show.PosterPath),
		Rating:      show.VoteAverage,
	}

	// TV search rows carry no overview; enrich from the detail endpoint when
	// we can, and fall back to the search row when we cannot.
	if full, err := r.client.GetTvInfo(show.ID, options); err == nil && full != nil {
		record.Overview = full.Overview
		if full.FirstAirDate != "" {
			record.ReleaseDate = full.FirstAirDate
		}
	}

	return record, nil
}

func movieRecord(movie *tmdb.MovieShort) *FilmRecord {
	return &FilmRecord{
		Title:       movie.Title,
		Kind:        KindMovie,
		ReleaseDate: movie.ReleaseDate,
		Overview:    movie.Overview,
		TMDbID:      movie.ID,
		PosterURL:   posterURL(movie.PosterPath),
		Rating:      movie.VoteAverage,
	}
}

func posterURL(path string) string {
	if path == "" {
		return ""
	}
	return posterBaseURL + path
}
