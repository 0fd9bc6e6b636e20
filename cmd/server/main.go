package main

import (
	"log"
	"net/http"
	"os"
	"strconv"

	tmdb "github.com/ryanbradynd05/go-tmdb"

	"github.com/dkravets/reelid/internal/api"
	"github.com/dkravets/reelid/internal/extract"
	"github.com/dkravets/reelid/internal/gate"
	"github.com/dkravets/reelid/internal/identify"
	"github.com/dkravets/reelid/internal/media"
	"github.com/dkravets/reelid/internal/metadata"
	"github.com/dkravets/reelid/internal/pipeline"
	"github.com/dkravets/reelid/internal/storage"
)

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	uploadDir := os.Getenv("UPLOAD_DIR")
	if uploadDir == "" {
		uploadDir = "./uploads"
	}

	publicBase := os.Getenv("PUBLIC_BASE_URL")
	if publicBase == "" {
		publicBase = "http://localhost:" + port + "/uploads"
	}

	maxUploadSize := envInt64("MAX_UPLOAD_SIZE", 104857600)
	maxConcurrent := envInt("MAX_CONCURRENT", gate.DefaultCapacity)
	cacheSize := envInt("CACHE_SIZE", identify.DefaultCacheSize)

	geminiKey := os.Getenv("GEMINI_API_KEY")
	if geminiKey == "" {
		log.Fatal("GEMINI_API_KEY is required")
	}

	tmdbKey := os.Getenv("TMDB_API_KEY")
	if tmdbKey == "" {
		log.Fatal("TMDB_API_KEY is required")
	}

	localStorage, err := storage.NewLocal(uploadDir, publicBase)
	if err != nil {
		log.Fatal("Failed to initialize storage:", err)
	}

	geminiClient, err := identify.NewGeminiClient(identify.GeminiConfig{
		APIKey: geminiKey,
		Model:  os.Getenv("GEMINI_MODEL"),
	})
	if err != nil {
		log.Fatal("Failed to initialize gemini client:", err)
	}

	identClient, err := identify.NewClient(media.NewLoader(), geminiClient, identify.Config{
		CacheSize: cacheSize,
	})
	if err != nil {
		log.Fatal("Failed to initialize identification client:", err)
	}

	tmdbAPI := tmdb.Init(tmdb.Config{
		APIKey:   tmdbKey,
		Proxies:  nil,
		UseProxy: false,
	})
	resolver := metadata.NewResolver(tmdbAPI)

	var extractor extract.Extractor
	if extractorURL := os.Getenv("EXTRACTOR_URL"); extractorURL != "" {
		extractor = extract.NewHTTPExtractor(extractorURL)
	} else {
		log.Printf("EXTRACTOR_URL not set; social-media URL analysis disabled")
	}

	p := pipeline.New(gate.New(maxConcurrent), identClient, resolver, extractor)

	app := &api.App{
		Pipeline:      p,
		Storage:       localStorage,
		UploadsDir:    uploadDir,
		MaxUploadSize: maxUploadSize,
	}

	router := api.NewRouter(app)

	log.Printf("Server starting on port %s", port)
	log.Printf("Upload directory: %s", uploadDir)
	log.Printf("Public upload base: %s", publicBase)
	log.Printf("Max concurrent pipelines: %d", maxConcurrent)
	log.Printf("Identification cache size: %d", cacheSize)

	if err := http.ListenAndServe(":"+port, router); err != nil {
		log.Fatal(err)
	}
}

func envInt(name string, fallback int) int {
	if s := os.Getenv(name); s != "" {
		if v, err := strconv.Atoi(s); err == nil {
			return v
		}
		log.Fatalf("Invalid %s: %s", name, s)
	}
	return fallback
}

func envInt64(name string, fallback int64) int64 {
	if s := os.Getenv(name); s != "" {
		if v, err := strconv.ParseInt(s, 10, 64); err == nil {
			return v
		}
		log.Fatalf("Invalid %s: %s", name, s)
	}
	return fallback
}
