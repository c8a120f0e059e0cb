package postfx

// ResourceManager disposes resources no pipeline references anymore.
//
// Optimize marks every buffer and render target reachable from the
// registered pipelines, then disposes the resources that were reachable
// at the previous call but are not now. A resource reachable from any
// registered pipeline is never disposed.
type ResourceManager struct {
	pipelines []*RenderPipeline
	tracked   map[Disposable]struct{}
}

// NewResourceManager returns an empty manager.
func NewResourceManager() *ResourceManager {
	return &ResourceManager{tracked: make(map[Disposable]struct{})}
}

// Add registers a pipeline. Adding it twice has no effect.
func (rm *ResourceManager) Add(pl *RenderPipeline) {
	for _, p := range rm.pipelines {
		if p == pl {
			return
		}
	}
	rm.pipelines = append(rm.pipelines, pl)
}

// Remove unregisters a pipeline. Its resources stay tracked, so the next
// Optimize disposes those no other pipeline references.
func (rm *ResourceManager) Remove(pl *RenderPipeline) bool {
	for i, p := range rm.pipelines {
		if p == pl {
			pl.visitResources(func(d Disposable) { rm.tracked[d] = struct{}{} })
			rm.pipelines = append(rm.pipelines[:i], rm.pipelines[i+1:]...)
			return true
		}
	}
	return false
}

// Pipelines returns the number of registered pipelines.
func (rm *ResourceManager) Pipelines() int {
	return len(rm.pipelines)
}

// Tracked returns the number of resources found by the last mark phase.
func (rm *ResourceManager) Tracked() int {
	return len(rm.tracked)
}

// Optimize runs one mark and sweep and returns the number of disposed
// resources.
func (rm *ResourceManager) Optimize() int {
	reachable := make(map[Disposable]struct{}, len(rm.tracked))
	for _, pl := range rm.pipelines {
		pl.visitResources(func(d Disposable) { reachable[d] = struct{}{} })
	}

	disposed := 0
	for d := range rm.tracked {
		if _, ok := reachable[d]; ok || d.IsDisposed() {
			continue
		}
		d.Dispose()
		disposed++
	}
	rm.tracked = reachable
	Logger().Debug("postfx: resource sweep", "reachable", len(reachable), "disposed", disposed)
	return disposed
}
