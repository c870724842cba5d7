package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/andhikamw/lensdl/internal/common/config"
	"github.com/andhikamw/lensdl/internal/common/logger"
	"github.com/andhikamw/lensdl/internal/common/session"
	"github.com/andhikamw/lensdl/internal/engine"
	"github.com/andhikamw/lensdl/pkg/models"
)

func main() {
	var (
		outputDir  string
		quality    string
		cookieFile string
		noCookies  bool
	)
	flag.StringVar(&outputDir, "o", "", "output directory")
	flag.StringVar(&quality, "q", "", "desired quality (uhd/fhd/hd/sd/ld)")
	flag.StringVar(&cookieFile, "c", "", "cookie file path (JSON, see cookie-export)")
	flag.BoolVar(&noCookies, "no-cookies", false, "run without cookies (free videos only)")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <video page URL or id>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	input := flag.Arg(0)

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg)

	if outputDir == "" {
		outputDir = cfg.Downloader.OutputDir
	}
	if quality == "" {
		quality = cfg.Downloader.Quality
	}
	if cookieFile == "" {
		cookieFile = cfg.Auth.CookieFile
	}

	sess := session.New(cfg.Auth.UserAgent, log)
	if !noCookies {
		if count, err := sess.LoadCookieFile(cookieFile); err != nil {
			log.WithError(err).Warn("No cookies loaded; paid videos will fail. Run cookie-export first.")
		} else {
			log.WithField("count", count).Info("Cookies loaded")
			if !sess.HasAuthCookie() {
				log.Warn("Auth cookie not found in cookie file")
			}
		}
	}

	eng := engine.FromSession(sess, log)
	if dl := eng.Downloader(); dl != nil {
		dl.FFmpegPath = cfg.Downloader.FFmpegPath
		if cfg.Downloader.AssumedSizeBytes > 0 {
			dl.AssumedSizeBytes = cfg.Downloader.AssumedSizeBytes
		}
	}

	// One progress line per whole-percent step, newline separated so
	// wrapping tools can parse it
	lastPrinted := -1
	onProgress := func(percent float64) {
		step := int(percent)
		if step > lastPrinted {
			lastPrinted = step
			fmt.Printf("progress: %d%%\n", step)
		}
	}

	path, err := eng.DownloadVideo(context.Background(), input, outputDir, models.Quality(quality), onProgress)
	if err != nil {
		log.WithError(err).Error("Download failed")
		os.Exit(1)
	}

	fmt.Printf("saved: %s\n", path)
}
