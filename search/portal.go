// Package search implements the listing portal search provider. A headless
// browser renders the portal's result page and the listing cards are read
// from the DOM.
package search

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"homematch/models"
	"homematch/utils"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// Config configures the portal provider.
type Config struct {
	// URLTemplate may contain {offerType} and {location}.
	URLTemplate string
	Source      string
	Timeout     time.Duration
	MaxResults  int
	MaxRetries  int
	ChromeBin   string
	// RenderWait is how long the page gets to run its scripts.
	RenderWait time.Duration
}

// Card is one listing card as read from the result page.
type Card struct {
	Title   string `json:"title"`
	Price   string `json:"price"`
	Rooms   string `json:"rooms"`
	Space   string `json:"space"`
	Address string `json:"address"`
	URL     string `json:"url"`
	Image   string `json:"image"`
}

// Renderer loads a result page and returns its cards.
type Renderer interface {
	Render(ctx context.Context, pageURL string) ([]Card, error)
}

// PortalProvider implements services.SearchProvider.
type PortalProvider struct {
	cfg      Config
	renderer Renderer
	retry    *utils.RetryConfig
	logger   *zap.Logger
}

func NewPortalProvider(cfg Config, renderer Renderer, logger *zap.Logger) *PortalProvider {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 20
	}
	if cfg.Source == "" {
		cfg.Source = "homegate"
	}
	if renderer == nil {
		renderer = &ChromeRenderer{ChromeBin: cfg.ChromeBin, Wait: cfg.RenderWait, Logger: logger}
	}
	return &PortalProvider{
		cfg:      cfg,
		renderer: renderer,
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries + 1,
			BaseDelay:   2 * time.Second,
			Logger:      logger,
		},
		logger: logger,
	}
}

// Search renders the result page for criteria and converts its cards.
func (p *PortalProvider) Search(ctx context.Context, criteria models.Criteria) ([]models.Candidate, error) {
	pageURL, err := BuildURL(p.cfg.URLTemplate, criteria)
	if err != nil {
		return nil, err
	}
	p.logger.Info("🔍 searching portal", zap.String("source", p.cfg.Source), zap.String("url", pageURL))

	var cards []Card
	err = p.retry.Do(ctx, "portal-search", func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
		var err error
		cards, err = p.renderer.Render(ctx, pageURL)
		return err
	})
	if err != nil {
		return nil, err
	}

	candidates := p.Convert(cards)
	p.logger.Info("✅ portal search done",
		zap.String("source", p.cfg.Source),
		zap.Int("cards", len(cards)),
		zap.Int("candidates", len(candidates)))
	return candidates, nil
}

var (
	numberRegexp     = regexp.MustCompile(`\d[\d'’,. ]*`)
	externalIDRegexp = regexp.MustCompile(`/(\d{4,})(?:[/?#]|$)`)
)

// Convert turns cards into candidates, dropping cards without a URL and
// repeated URLs, and caps the result at MaxResults.
func (p *PortalProvider) Convert(cards []Card) []models.Candidate {
	seen := make(map[string]struct{}, len(cards))
	out := make([]models.Candidate, 0, len(cards))
	for _, c := range cards {
		link := strings.TrimSpace(c.URL)
		if link == "" {
			continue
		}
		if _, dup := seen[link]; dup {
			continue
		}
		seen[link] = struct{}{}

		candidate := models.Candidate{
			Source:     p.cfg.Source,
			ExternalID: ExternalID(link),
			ListingFields: models.ListingFields{
				Title:       normaliseText(c.Title),
				URL:         link,
				Address:     normaliseText(c.Address),
				ImageURL:    strings.TrimSpace(c.Image),
				Price:       ParseNumber(c.Price),
				Rooms:       ParseNumber(c.Rooms),
				LivingSpace: ParseNumber(c.Space),
			},
		}
		out = append(out, candidate)
		if len(out) >= p.cfg.MaxResults {
			break
		}
	}
	return out
}

// BuildURL fills the template with the criteria and appends the numeric
// filters as query parameters.
func BuildURL(template string, c models.Criteria) (string, error) {
	offer := c.OfferType
	if offer == "" {
		offer = models.OfferTypeBuy
	}
	location := "switzerland"
	if c.Location != nil && strings.TrimSpace(*c.Location) != "" {
		location = slug(*c.Location)
	}

	raw := strings.NewReplacer("{offerType}", offer, "{location}", location).Replace(template)
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid search URL template: %w", err)
	}

	q := u.Query()
	setNumber(q, "ag", c.PriceFrom)
	setNumber(q, "ah", c.PriceTo)
	setNumber(q, "ac", c.RoomsFrom)
	setNumber(q, "ad", c.RoomsTo)
	setNumber(q, "ak", c.LivingSpaceFrom)
	setNumber(q, "al", c.LivingSpaceTo)
	setNumber(q, "be", c.Radius)
	if c.OnlyWithPrice != nil && *c.OnlyWithPrice {
		q.Set("ep", "1")
	}
	if c.FreeText != nil && strings.TrimSpace(*c.FreeText) != "" {
		q.Set("q", strings.TrimSpace(*c.FreeText))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func setNumber(q url.Values, key string, v *float64) {
	if v == nil || *v <= 0 {
		return
	}
	q.Set(key, strconv.FormatFloat(*v, 'f', -1, 64))
}

func slug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Join(strings.Fields(s), "-")
}

// ParseNumber reads the first number of a display string such as
// "CHF 2'950.–" or "3.5 rooms". It returns nil when there is none.
func ParseNumber(s string) *float64 {
	match := numberRegexp.FindString(s)
	if match == "" {
		return nil
	}
	cleaned := strings.NewReplacer("'", "", "’", "", ",", "", " ", "").Replace(match)
	cleaned = strings.TrimRight(cleaned, ".")
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil
	}
	return &v
}

// ExternalID extracts the portal's listing id from a detail URL.
func ExternalID(link string) string {
	m := externalIDRegexp.FindStringSubmatch(link)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

func normaliseText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ChromeRenderer renders pages in headless Chrome.
type ChromeRenderer struct {
	ChromeBin string
	Wait      time.Duration
	Logger    *zap.Logger
}

const cardsScript = `
(function() {
	var cards = document.querySelectorAll('[data-test="result-list-item"], article');
	var out = [];
	for (var i = 0; i < cards.length; i++) {
		var c = cards[i];
		var link = c.querySelector('a[href]');
		var img = c.querySelector('img');
		var text = function(sel) {
			var el = c.querySelector(sel);
			return el ? el.textContent.trim() : '';
		};
		out.push({
			title: text('[class*="title"], h2, h3'),
			price: text('[class*="price"]'),
			rooms: text('[class*="rooms"]'),
			space: text('[class*="livingSpace"], [class*="space"]'),
			address: text('address, [class*="address"]'),
			url: link ? link.href : '',
			image: img ? (img.currentSrc || img.src || '') : ''
		});
	}
	return out;
})()
`

func (r *ChromeRenderer) Render(ctx context.Context, pageURL string) ([]Card, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent("Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 "+
			"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
	)
	if bin := r.chromeBinary(); bin != "" {
		opts = append(opts, chromedp.ExecPath(bin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelBrowser()

	wait := r.Wait
	if wait <= 0 {
		wait = 4 * time.Second
	}

	var cards []Card
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(pageURL),
		chromedp.Sleep(wait),
		chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil),
		chromedp.Sleep(wait/2),
		chromedp.Evaluate(cardsScript, &cards),
	)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", pageURL, err)
	}
	r.Logger.Debug("page rendered", zap.String("url", pageURL), zap.Int("cards", len(cards)))
	return cards, nil
}

// chromeBinary returns the configured binary, else the first known browser
// found on PATH. Empty lets chromedp pick its default.
func (r *ChromeRenderer) chromeBinary() string {
	if r.ChromeBin != "" {
		return r.ChromeBin
	}
	if env := os.Getenv("CHROME_BIN"); env != "" {
		return env
	}
	for _, name := range []string{"google-chrome", "chromium", "chromium-browser"} {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	return ""
}
