// Package browser implements the session contracts on top of go-rod.
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"fjacquet/budget-sync/internal/logging"
	"fjacquet/budget-sync/internal/session"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
)

// DefaultUserAgent is a desktop Chrome on Windows.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"

// stealthScript runs before any page script and hides the usual automation markers.
const stealthScript = `() => {
	Object.defineProperty(navigator, 'webdriver', { get: () => false });
	Object.defineProperty(navigator, 'plugins', { get: () => [1, 2, 3] });
	Object.defineProperty(navigator, 'languages', { get: () => ['en-US', 'en'] });
}`

// Options configures the launched browser.
type Options struct {
	// Bin is the Chrome/Chromium executable. Empty means look it up or download it.
	Bin               string
	Headless          bool
	UserAgent         string
	ElementTimeout    time.Duration
	NavigationTimeout time.Duration
}

// DefaultOptions returns a visible browser with the timeouts used against the remote app.
func DefaultOptions() Options {
	return Options{
		Headless:          false,
		UserAgent:         DefaultUserAgent,
		ElementTimeout:    5 * time.Second,
		NavigationTimeout: 60 * time.Second,
	}
}

// Opener launches a fresh browser for every session.
type Opener struct {
	opts   Options
	logger logging.Logger
}

// NewOpener creates an Opener.
func NewOpener(opts Options, logger logging.Logger) *Opener {
	def := DefaultOptions()
	if opts.ElementTimeout <= 0 {
		opts.ElementTimeout = def.ElementTimeout
	}
	if opts.NavigationTimeout <= 0 {
		opts.NavigationTimeout = def.NavigationTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = def.UserAgent
	}
	if logger == nil {
		logger = logging.NewLogrusAdapter("info", "text")
	}
	return &Opener{opts: opts, logger: logger.WithField(logging.FieldComponent, logging.ComponentSession)}
}

// newLauncher builds the launcher with the automation fingerprints turned off.
func newLauncher(opts Options) *launcher.Launcher {
	l := launcher.New().
		Headless(opts.Headless).
		Set(flags.Flag("start-maximized")).
		Set(flags.Flag("disable-blink-features"), "AutomationControlled").
		Set(flags.Flag("disable-infobars")).
		Set(flags.NoSandbox).
		Set(flags.Flag("disable-gpu")).
		Delete(flags.Flag("enable-automation"))

	bin := opts.Bin
	if bin == "" {
		if path, ok := launcher.LookPath(); ok {
			bin = path
		}
	}
	if bin != "" {
		l = l.Bin(bin)
	}
	return l
}

// Open launches the browser, opens the first page and starts the listener that
// promotes newly opened pages to front.
func (o *Opener) Open(ctx context.Context) (session.Session, error) {
	l := newLauncher(o.opts)
	controlURL, err := l.Context(ctx).Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	listenCtx, cancel := context.WithCancel(context.Background())
	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		cancel()
		l.Kill()
		return nil, fmt.Errorf("connect to browser: %w", err)
	}

	s := &Session{
		browser:  b,
		launcher: l,
		opts:     o.opts,
		logger:   o.logger,
		cancel:   cancel,
	}
	s.attach = s.attachTarget

	page, err := b.Page(proto.TargetCreateTarget{URL: ""})
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("open page: %w", err)
	}
	if err := s.prepare(page); err != nil {
		_ = s.Close()
		return nil, err
	}
	s.setFront(page)

	if err := (proto.TargetSetDiscoverTargets{Discover: true}).Call(b); err != nil {
		o.logger.WithError(err).Warn("Target discovery unavailable; new windows will not be followed")
	} else {
		s.listen(listenCtx)
	}

	o.logger.Info("Browser session opened", logging.F("headless", o.opts.Headless))
	return s, nil
}

// Session is a live browser plus the front page registry.
type Session struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	opts     Options
	logger   logging.Logger
	cancel   context.CancelFunc
	// attach turns a new target into a ready page.
	attach func(proto.TargetTargetID) (*rod.Page, error)

	mu        sync.RWMutex
	front     *rod.Page
	closeOnce sync.Once
	closeErr  error
}

// Front returns the current front page.
func (s *Session) Front() session.Page {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &Page{page: s.front, opts: s.opts}
}

func (s *Session) setFront(p *rod.Page) {
	s.mu.Lock()
	s.front = p
	s.mu.Unlock()
}

func (s *Session) prepare(p *rod.Page) error {
	if _, err := p.EvalOnNewDocument(stealthScript); err != nil {
		return fmt.Errorf("install page init script: %w", err)
	}
	if err := p.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      s.opts.UserAgent,
		AcceptLanguage: "en-US,en",
	}); err != nil {
		return fmt.Errorf("set user agent: %w", err)
	}
	return nil
}

// listen promotes every newly created page target to front.
func (s *Session) listen(ctx context.Context) {
	wait := s.browser.Context(ctx).EachEvent(func(e *proto.TargetTargetCreated) {
		if e.TargetInfo == nil || e.TargetInfo.Type != proto.TargetTargetInfoTypePage {
			return
		}
		go s.promote(e.TargetInfo.TargetID)
	})
	go wait()
}

// promote makes the page behind id the front page unless it already is.
func (s *Session) promote(id proto.TargetTargetID) {
	s.mu.RLock()
	current := s.front
	s.mu.RUnlock()
	if current != nil && current.TargetID == id {
		return
	}

	p, err := s.attach(id)
	if err != nil {
		s.logger.WithError(err).Warn("Could not switch to new page", logging.F(logging.FieldTargetID, string(id)))
		return
	}
	s.setFront(p)
	s.logger.Info("Switched to newly opened page", logging.F(logging.FieldTargetID, string(id)))
}

func (s *Session) attachTarget(id proto.TargetTargetID) (*rod.Page, error) {
	p, err := s.browser.PageFromTarget(id)
	if err != nil {
		return nil, fmt.Errorf("attach to page: %w", err)
	}
	if _, err := p.Activate(); err != nil {
		return nil, fmt.Errorf("bring page to front: %w", err)
	}
	if err := s.prepare(p); err != nil {
		s.logger.WithError(err).Debug("New page kept without init script")
	}
	return p, nil
}

// Close stops the listener, closes the browser and kills the process. It is safe to call twice.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
		if s.browser != nil {
			s.closeErr = s.browser.Close()
		}
		if s.launcher != nil {
			s.launcher.Kill()
			s.launcher.Cleanup()
		}
		s.logger.Info("Browser session closed")
	})
	return s.closeErr
}
