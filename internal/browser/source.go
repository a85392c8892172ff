// Package browser attaches to a live Chrome tab over the DevTools protocol and
// streams inserted subtree markup to the capture pipeline.
package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog"
	"github.com/ysmood/gson"
)

const mutationBinding = "__borgMutation"

// observerJS registers a MutationObserver that reports each inserted element
// subtree through the exposed binding. Idempotent across re-injection.
const observerJS = `() => {
	if (window.__borgObserving) { return true; }
	window.__borgObserving = true;
	const observer = new MutationObserver((mutations) => {
		for (const m of mutations) {
			for (const node of m.addedNodes) {
				if (node.nodeType === 1) {
					window.` + mutationBinding + `(node.outerHTML);
				}
			}
		}
	});
	observer.observe(document.body, { childList: true, subtree: true });
	return true;
}`

// PageSource observes one browser tab. It implements capture.Source.
type PageSource struct {
	browser  *rod.Browser
	page     *rod.Page
	logger   zerolog.Logger
	launched bool
}

// Attach connects to Chrome and binds to the tab showing pageURL. With an
// empty controlURL a local browser is launched; if no open tab matches, a new
// one is created and navigated there.
func Attach(ctx context.Context, controlURL, pageURL string, headless bool, logger zerolog.Logger) (*PageSource, error) {
	launched := false
	if controlURL == "" {
		url, err := launcher.New().Headless(headless).Launch()
		if err != nil {
			return nil, fmt.Errorf("launch chrome: %w", err)
		}
		controlURL = url
		launched = true
	}

	b := rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}

	page, err := findPage(b, pageURL)
	if err != nil {
		return nil, err
	}
	if page == nil {
		page, err = b.Page(proto.TargetCreateTarget{URL: pageURL})
		if err != nil {
			return nil, fmt.Errorf("open page: %w", err)
		}
		if err := page.WaitLoad(); err != nil {
			return nil, fmt.Errorf("wait for page load: %w", err)
		}
		logger.Info().Str("url", pageURL).Msg("opened new tab")
	}

	return &PageSource{browser: b, page: page, logger: logger, launched: launched}, nil
}

// findPage returns the first open tab whose address contains pageURL, or nil.
func findPage(b *rod.Browser, pageURL string) (*rod.Page, error) {
	pages, err := b.Pages()
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	for _, p := range pages {
		info, err := p.Info()
		if err != nil {
			continue
		}
		if strings.Contains(info.URL, pageURL) || strings.Contains(pageURL, info.URL) {
			return p, nil
		}
	}
	return nil, nil
}

// Document serializes the current document body.
func (s *PageSource) Document(ctx context.Context) (string, error) {
	res, err := s.page.Context(ctx).Eval(`() => document.body ? document.body.outerHTML : ""`)
	if err != nil {
		return "", fmt.Errorf("read document: %w", err)
	}
	if res == nil || res.Value.Nil() {
		return "", nil
	}
	return res.Value.String(), nil
}

// Mutations installs the observer and streams inserted subtrees until ctx is
// canceled.
func (s *PageSource) Mutations(ctx context.Context) (<-chan string, error) {
	out := make(chan string, 64)

	var mu sync.Mutex
	closed := false

	stop, err := s.page.Expose(mutationBinding, func(payload gson.JSON) (interface{}, error) {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return nil, nil
		}
		select {
		case out <- payload.Str():
		default:
			s.logger.Warn().Msg("mutation buffer full, subtree dropped")
		}
		return nil, nil
	})
	if err != nil {
		return nil, fmt.Errorf("expose mutation binding: %w", err)
	}

	if _, err := s.page.Context(ctx).Eval(observerJS); err != nil {
		_ = stop()
		return nil, fmt.Errorf("install observer: %w", err)
	}

	go func() {
		<-ctx.Done()
		_ = stop()
		mu.Lock()
		closed = true
		close(out)
		mu.Unlock()
	}()

	return out, nil
}

// PageURL reports the current tab address.
func (s *PageSource) PageURL() string {
	info, err := s.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

// Close detaches from the tab and, when this process launched the browser,
// shuts the browser down too.
func (s *PageSource) Close() error {
	if s.launched {
		return s.browser.Close()
	}
	return nil
}
