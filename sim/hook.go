package sim

// HookPos defines the enum of possible hooking positions
type HookPos struct {
	Name string
}

// HookCtx is the context that holds all the information about the site that
// a hook is triggered
type HookCtx struct {
	Domain Hookable
	Now    float64
	Pos    *HookPos
	Item   any
}

// Hookable defines an object that accepts Hooks
type Hookable interface {
	AcceptHook(hook Hook)
}

// Hook is a short piece of program that can be invoked by a hookable object.
type Hook interface {
	Func(ctx HookCtx)
}

// HookFunc adapts a plain function to the Hook interface.
type HookFunc func(ctx HookCtx)

// Func calls f(ctx).
func (f HookFunc) Func(ctx HookCtx) {
	f(ctx)
}

var (
	// HookPosBeforeResume triggers before a process is granted control.
	HookPosBeforeResume = &HookPos{Name: "BeforeResume"}
	// HookPosAfterResume triggers after a process has suspended again.
	HookPosAfterResume = &HookPos{Name: "AfterResume"}
	// HookPosAcquire triggers when a resource unit becomes held.
	HookPosAcquire = &HookPos{Name: "Acquire"}
	// HookPosRelease triggers when a resource unit is freed.
	HookPosRelease = &HookPos{Name: "Release"}
)

// HookableBase provides the hook registry for types that embed it.
type HookableBase struct {
	Hooks []Hook
}

// AcceptHook registers a hook
func (h *HookableBase) AcceptHook(hook Hook) {
	h.Hooks = append(h.Hooks, hook)
}

// NumHooks returns the number of registered hooks.
func (h *HookableBase) NumHooks() int {
	return len(h.Hooks)
}

// InvokeHook triggers the registered Hooks
func (h *HookableBase) InvokeHook(ctx HookCtx) {
	for _, hook := range h.Hooks {
		hook.Func(ctx)
	}
}
