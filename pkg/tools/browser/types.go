package browser

import (
	"time"

	"github.com/playwright-community/playwright-go"
)

// Session represents an active browser session with its associated resources.
type Session struct {
	// Name is the unique identifier for this session
	Name string

	// Browser is the Playwright browser instance
	Browser playwright.Browser

	// Context is the browser context (isolated cookie jar)
	Context playwright.BrowserContext

	// Page is the page opened with the session. The agent may open more
	// pages in Context; LivePage always probes the first one.
	Page playwright.Page

	// Headless indicates if the browser is running in headless mode
	Headless bool

	// StorageStatePath is where cookies are persisted on close, if set
	StorageStatePath string

	// CreatedAt is the timestamp when the session was created
	CreatedAt time.Time
}

// SessionOptions configures a new browser session.
type SessionOptions struct {
	// Headless controls whether the browser runs without a visible window
	Headless bool

	// Viewport sets the initial viewport size
	Viewport *Viewport

	// Timeout sets the default timeout for operations (in milliseconds)
	Timeout float64

	// StorageStatePath loads cookies and local storage from this file when
	// it exists and writes them back when the session closes.
	StorageStatePath string
}

// Viewport represents the browser viewport dimensions.
type Viewport struct {
	Width  int
	Height int
}

// NavigateOptions configures page navigation behavior.
type NavigateOptions struct {
	// WaitUntil specifies when to consider navigation successful
	// Valid values: "load", "domcontentloaded", "networkidle"
	WaitUntil string

	// Timeout in milliseconds (0 means default)
	Timeout float64
}

// SessionInfo contains metadata about a browser session.
type SessionInfo struct {
	Name       string
	CurrentURL string
	Headless   bool
	CreatedAt  time.Time
}

// Default values for various operations
const (
	DefaultTimeout        = 30000.0 // 30 seconds in milliseconds
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 720
	DefaultMaxSessions    = 5
	DefaultUserAgent      = "sessionkeeper/1.0"
	MaxSnapshotSize       = 10 * 1024 * 1024
)
