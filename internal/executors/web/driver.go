package web

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/chromedp/chromedp"

	"github.com/alexisbeaulieu97/scenarist/internal/domain/scenario"
	"github.com/alexisbeaulieu97/scenarist/internal/logger"
)

// Command is a single browser instruction.
type Command struct {
	Action scenario.Action
	Target string
	Value  string
}

// Outcome reports what a command observed. OK is false when a verification
// did not hold; Extracted carries text for extract commands.
type Outcome struct {
	OK        bool
	Extracted string
}

// Driver drives a browser on behalf of the web executor.
type Driver interface {
	Perform(ctx context.Context, cmd Command) (Outcome, error)
	Close() error
}

// ChromeOptions configures ChromeDriver.
type ChromeOptions struct {
	Headless bool
	// ExecPath overrides the Chrome binary lookup.
	ExecPath string
	Logger   *logger.Logger
}

// ChromeDriver runs commands in a single Chrome tab through the DevTools
// protocol. The browser starts on the first command.
type ChromeDriver struct {
	opts ChromeOptions

	mu          sync.Mutex
	tab         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
}

// NewChromeDriver returns a driver that has not started a browser yet.
func NewChromeDriver(opts ChromeOptions) *ChromeDriver {
	return &ChromeDriver{opts: opts}
}

func (d *ChromeDriver) start() (context.Context, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.tab != nil {
		return d.tab, nil
	}

	allocOpts := append([]chromedp.ExecAllocatorOption(nil), chromedp.DefaultExecAllocatorOptions[:]...)
	allocOpts = append(allocOpts, chromedp.Flag("headless", d.opts.Headless))
	if d.opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(d.opts.ExecPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	var ctxOpts []chromedp.ContextOption
	if d.opts.Logger != nil {
		ctxOpts = append(ctxOpts, chromedp.WithLogf(d.opts.Logger.Debugf))
	}
	tab, cancelTab := chromedp.NewContext(allocCtx, ctxOpts...)

	// An empty Run launches the browser and attaches the tab.
	if err := chromedp.Run(tab); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, fmt.Errorf("start browser: %w", err)
	}

	d.tab = tab
	d.cancelTab = cancelTab
	d.cancelAlloc = cancelAlloc
	return tab, nil
}

// Perform implements Driver. Cancelling ctx aborts the command without
// closing the tab.
func (d *ChromeDriver) Perform(ctx context.Context, cmd Command) (Outcome, error) {
	tab, err := d.start()
	if err != nil {
		return Outcome{}, err
	}

	runCtx, cancel := context.WithCancel(tab)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	outcome := Outcome{OK: true}
	switch cmd.Action {
	case scenario.ActionNavigate:
		err = chromedp.Run(runCtx, chromedp.Navigate(cmd.Target))
	case scenario.ActionClick:
		err = chromedp.Run(runCtx, chromedp.Click(cmd.Target, chromedp.ByQuery))
	case scenario.ActionType:
		err = chromedp.Run(runCtx,
			chromedp.WaitVisible(cmd.Target, chromedp.ByQuery),
			chromedp.SendKeys(cmd.Target, cmd.Value, chromedp.ByQuery),
		)
	case scenario.ActionVerify:
		var visible bool
		err = chromedp.Run(runCtx, chromedp.Evaluate(visibilityScript(cmd.Target), &visible))
		outcome.OK = visible
	case scenario.ActionExtract:
		err = chromedp.Run(runCtx, chromedp.Text(cmd.Target, &outcome.Extracted, chromedp.ByQuery, chromedp.NodeVisible))
	default:
		return Outcome{}, fmt.Errorf("unsupported browser action %q", cmd.Action)
	}

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Outcome{}, ctxErr
		}
		return Outcome{}, err
	}
	return outcome, nil
}

// Close shuts the tab and the browser process down.
func (d *ChromeDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cancelTab != nil {
		d.cancelTab()
	}
	if d.cancelAlloc != nil {
		d.cancelAlloc()
	}
	d.tab, d.cancelTab, d.cancelAlloc = nil, nil, nil
	return nil
}

func visibilityScript(selector string) string {
	quoted, _ := json.Marshal(selector)
	return fmt.Sprintf(`(() => {
	const el = document.querySelector(%s);
	if (!el) return false;
	const style = window.getComputedStyle(el);
	if (style.display === "none" || style.visibility === "hidden") return false;
	const rect = el.getBoundingClientRect();
	return rect.width > 0 && rect.height > 0;
})()`, quoted)
}
