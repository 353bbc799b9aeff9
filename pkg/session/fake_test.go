package session

import (
	"sync"
	"time"
)

// fakePage is a scripted Page. Elements are keyed by exact selector.
type fakePage struct {
	mu           sync.Mutex
	content      string
	contentErr   error
	findErr      error
	urlErr       error
	panicOnRead  bool
	url          string
	elements     map[string]*fakeElement
	contentCalls int
	gotos        []string
	backs        int
}

func newFakePage(content string) *fakePage {
	return &fakePage{
		content:  content,
		url:      "https://drive.google.com/drive/my-drive",
		elements: make(map[string]*fakeElement),
	}
}

func (p *fakePage) Content() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.contentCalls++
	if p.panicOnRead {
		panic("page crashed")
	}
	if p.contentErr != nil {
		return "", p.contentErr
	}
	return p.content, nil
}

func (p *fakePage) Find(selector string) (Element, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.findErr != nil {
		return nil, p.findErr
	}
	el, ok := p.elements[selector]
	if !ok {
		return nil, nil
	}
	return el, nil
}

func (p *fakePage) URL() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.urlErr != nil {
		return "", p.urlErr
	}
	return p.url, nil
}

func (p *fakePage) Goto(url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gotos = append(p.gotos, url)
	p.url = url
	return nil
}

func (p *fakePage) GoBack() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.backs++
	return nil
}

// add places an element; onClick runs with the page lock released.
func (p *fakePage) add(selector string) *fakeElement {
	p.mu.Lock()
	defer p.mu.Unlock()
	el := &fakeElement{page: p, selector: selector}
	p.elements[selector] = el
	return el
}

func (p *fakePage) remove(selector string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.elements, selector)
}

func (p *fakePage) setContent(content string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.content = content
}

func (p *fakePage) setURL(url string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.url = url
}

func (p *fakePage) reads() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.contentCalls
}

type fakeElement struct {
	page     *fakePage
	selector string

	mu       sync.Mutex
	clicks   int
	fills    []string
	clickErr error
	fillErr  error
	onClick  func()
}

func (e *fakeElement) Click() error {
	e.mu.Lock()
	e.clicks++
	err := e.clickErr
	onClick := e.onClick
	e.mu.Unlock()

	if err != nil {
		return err
	}
	if onClick != nil {
		onClick()
	}
	return nil
}

func (e *fakeElement) Fill(text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.fillErr != nil {
		return e.fillErr
	}
	e.fills = append(e.fills, text)
	return nil
}

func (e *fakeElement) clickCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clicks
}

func (e *fakeElement) filled() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.fills...)
}

// fakeClock only moves when Advance is called. Sleep is instant.
type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	waiters []clockWaiter
}

type clockWaiter struct {
	deadline time.Time
	ch       chan time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := make(chan time.Time, 1)
	c.waiters = append(c.waiters, clockWaiter{deadline: c.now.Add(d), ch: ch})
	return ch
}

func (c *fakeClock) Sleep(time.Duration) {}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)

	pending := c.waiters[:0]
	for _, w := range c.waiters {
		if !w.deadline.After(c.now) {
			w.ch <- c.now
			continue
		}
		pending = append(pending, w)
	}
	c.waiters = pending
}

// Waiters returns how many After channels are still pending.
func (c *fakeClock) Waiters() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waiters)
}

// Standard selectors from DefaultRules used by the tests.
const (
	selTryAgain   = "button:has-text('Try again')"
	selTentar     = "button:has-text('Tentar novamente')"
	selEmail      = "input[type='email']"
	selPassword   = "input[type='password']"
	selNext       = "button:has-text('Next')"
	selSignInLink = "a:has-text('Sign in')"
)
