package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"

	"github.com/andhikamw/lensdl/internal/common/config"
	"github.com/andhikamw/lensdl/internal/common/logger"
	"github.com/andhikamw/lensdl/internal/common/session"
)

const (
	pollInterval = 2 * time.Second
	loginTimeout = 5 * time.Minute
)

func main() {
	var outputFile string
	flag.StringVar(&outputFile, "o", "", "output cookie file (defaults to the configured cookie file)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg)

	if outputFile == "" {
		outputFile = cfg.Auth.CookieFile
	}
	if outputFile == "" {
		outputFile = "cookies.json"
	}

	userAgent := cfg.Auth.UserAgent
	if userAgent == "" {
		userAgent = session.DefaultUserAgent
	}

	// The browser must stay visible so the user can complete the login
	// (QR code or SMS) themselves
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserAgent(userAgent),
		chromedp.Flag("headless", false),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(log.Printf))
	defer browserCancel()

	ctx, cancel := context.WithTimeout(browserCtx, loginTimeout)
	defer cancel()

	log.Info("Opening browser; log in and the cookies will be exported automatically")
	if err := chromedp.Run(ctx, chromedp.Navigate(session.SiteURL)); err != nil {
		log.Fatalf("Failed to open browser: %v", err)
	}

	cookies, err := waitForLogin(ctx, log)
	if err != nil {
		log.Fatalf("Login was not completed: %v", err)
	}

	if err := writeCookieFile(outputFile, cookies); err != nil {
		log.Fatalf("Failed to write cookie file: %v", err)
	}

	log.WithField("count", len(cookies)).Infof("Cookies exported to %s", outputFile)
	fmt.Printf("exported %d cookies to %s\n", len(cookies), outputFile)
}

// waitForLogin polls the browser's cookie store until the login cookie
// shows up, then returns the site's cookies.
func waitForLogin(ctx context.Context, log *logrus.Logger) ([]session.Cookie, error) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			cookies, err := siteCookies(ctx)
			if err != nil {
				// The tab may still be navigating; keep polling
				log.Debug("Cookie poll failed, retrying: ", err)
				continue
			}
			for _, ck := range cookies {
				if ck.Name == session.AuthCookieName {
					return cookies, nil
				}
			}
		}
	}
}

// siteCookies reads all browser cookies and keeps the backend's.
func siteCookies(ctx context.Context) ([]session.Cookie, error) {
	var exported []session.Cookie

	err := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		all, err := storage.GetCookies().Do(ctx)
		if err != nil {
			return err
		}
		for _, ck := range all {
			if !strings.HasSuffix(ck.Domain, "zhihu.com") {
				continue
			}
			exported = append(exported, session.Cookie{
				Name:    ck.Name,
				Value:   ck.Value,
				Domain:  ck.Domain,
				Path:    ck.Path,
				Expires: ck.Expires,
				Secure:  ck.Secure,
			})
		}
		return nil
	}))
	if err != nil {
		return nil, err
	}
	return exported, nil
}

func writeCookieFile(path string, cookies []session.Cookie) error {
	data, err := json.MarshalIndent(cookies, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
