package proctor

// Capabilities is the environment the session runs in: the browser, a
// kiosk shell or a headless agent. Every method is best-effort; errors are
// logged by the session and never stop the exam.
type Capabilities interface {
	AcquireFullscreen() error
	ReleaseFullscreen() error
	// OnVisibilityChange registers cb for hidden/visible transitions.
	OnVisibilityChange(cb func(hidden bool)) (cancel func())
	// OnFullscreenExit registers cb for every fullscreen exit.
	OnFullscreenExit(cb func()) (cancel func())
	// LockNavigation intercepts back, close and refresh until unlock is called.
	LockNavigation() (unlock func(), err error)
}

// NopCapabilities is for environments with no screen to guard.
type NopCapabilities struct{}

func (NopCapabilities) AcquireFullscreen() error { return nil }

func (NopCapabilities) ReleaseFullscreen() error { return nil }

func (NopCapabilities) OnVisibilityChange(func(hidden bool)) (cancel func()) { return func() {} }

func (NopCapabilities) OnFullscreenExit(func()) (cancel func()) { return func() {} }

func (NopCapabilities) LockNavigation() (unlock func(), err error) { return func() {}, nil }
