package harness

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

const doneSelector = `#validation_message[data-state="done"]`

// BrowserOptions configures the browser-driven submitter.
type BrowserOptions struct {
	FormURL  string
	Bin      string
	Headless bool
	Timeout  time.Duration
}

// BrowserSubmitter fills and submits the served form in a real browser, one
// fresh tab per case.
type BrowserSubmitter struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	formURL  string
	timeout  time.Duration
}

// NewBrowserSubmitter launches a browser. Callers must Close it.
func NewBrowserSubmitter(opts BrowserOptions) (*BrowserSubmitter, error) {
	if strings.TrimSpace(opts.FormURL) == "" {
		return nil, errors.New("form url is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}

	l := launcher.New().Headless(opts.Headless)
	if opts.Bin != "" {
		l = l.Bin(opts.Bin)
	}
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Cleanup()
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	return &BrowserSubmitter{
		launcher: l,
		browser:  browser,
		formURL:  opts.FormURL,
		timeout:  opts.Timeout,
	}, nil
}

// Submit implements Submitter.
func (s *BrowserSubmitter) Submit(ctx context.Context, c Case) (string, error) {
	tab, err := s.browser.Page(proto.TargetCreateTarget{URL: s.formURL})
	if err != nil {
		return "", fmt.Errorf("open form: %w", err)
	}
	defer tab.Close()

	page := tab.Context(ctx).Timeout(s.timeout)
	if err := page.WaitLoad(); err != nil {
		return "", fmt.Errorf("wait load: %w", err)
	}

	inputs := []struct{ id, value string }{
		{"fullname", c.FullName},
		{"email", c.Email},
		{"password", c.Password},
		{"confirm_password", c.Confirm},
	}
	for _, in := range inputs {
		el, err := page.Element("#" + in.id)
		if err != nil {
			return "", fmt.Errorf("find #%s: %w", in.id, err)
		}
		if in.value == "" {
			continue
		}
		if err := el.Input(in.value); err != nil {
			return "", fmt.Errorf("fill #%s: %w", in.id, err)
		}
	}

	btn, err := page.Element("#submit")
	if err != nil {
		return "", fmt.Errorf("find #submit: %w", err)
	}
	if err := btn.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return "", fmt.Errorf("click submit: %w", err)
	}

	msg, err := page.Element(doneSelector)
	if err != nil {
		return "", fmt.Errorf("wait for validation message: %w", err)
	}
	text, err := msg.Text()
	if err != nil {
		return "", fmt.Errorf("read validation message: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// Close shuts the browser down.
func (s *BrowserSubmitter) Close() error {
	err := s.browser.Close()
	s.launcher.Cleanup()
	return err
}
