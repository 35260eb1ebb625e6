package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

// RankCardService renders the /rank card by driving a headless browser over
// an HTML template. A missing browser degrades the command to a plain
// embed, so availability is probed once at startup.
type RankCardService struct {
	logger       *slog.Logger
	templatePath string
	available    bool
}

type RankCardData struct {
	Username        string
	AvatarLetter    string
	Level           int
	Rank            int
	CurrentXP       string
	TotalXP         string
	ProgressPercent int
	NextLevelXP     string
	BackgroundImage string
}

func NewRankCardService() *RankCardService {
	s := &RankCardService{
		logger:       slog.With(slog.String("service", "rank_card")),
		templatePath: filepath.Join("levelbot", "templates", "rankcard.html"),
	}
	s.probe()
	return s
}

func (s *RankCardService) probe() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	chromedpCtx, cancel := chromedp.NewContext(ctx)
	defer cancel()

	if err := chromedp.Run(chromedpCtx, chromedp.Navigate("data:text/html,<html><body>test</body></html>")); err != nil {
		s.logger.Error("chromedp not available, rank cards fall back to embeds",
			slog.String("error", err.Error()))
		return
	}
	s.available = true
}

// Available reports whether card rendering works on this host.
func (s *RankCardService) Available() bool {
	return s.available
}

// Generate renders the card to PNG bytes.
func (s *RankCardService) Generate(ctx context.Context, data RankCardData) ([]byte, error) {
	start := time.Now()

	htmlContent, err := s.renderHTML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to render card template: %w", err)
	}

	chromedpCtx, cancel := chromedp.NewContext(ctx, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancel()

	chromedpCtx, cancel = context.WithTimeout(chromedpCtx, 15*time.Second)
	defer cancel()

	var imageBytes []byte
	err = chromedp.Run(chromedpCtx,
		chromedp.Navigate("data:text/html,"+htmlContent),
		chromedp.WaitVisible("#rank-card", chromedp.ByID),
		chromedp.Sleep(200*time.Millisecond),
		chromedp.Screenshot("#rank-card", &imageBytes, chromedp.ByID),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to render card: %w", err)
	}

	s.logger.Info("Rank card generated",
		slog.String("username", data.Username),
		slog.Int("image_size", len(imageBytes)),
		slog.Duration("elapsed", time.Since(start)))
	return imageBytes, nil
}

func (s *RankCardService) renderHTML(data RankCardData) (string, error) {
	templateContent, err := os.ReadFile(s.templatePath)
	if err != nil {
		return "", fmt.Errorf("failed to read template file: %w", err)
	}

	tmpl, err := template.New("rankcard").Parse(string(templateContent))
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	// Escape for the data: URL.
	htmlContent := strings.ReplaceAll(buf.String(), "#", "%23")
	htmlContent = strings.ReplaceAll(htmlContent, "\n", "")
	return htmlContent, nil
}
