package pipeline

import (
	"github.com/collabora-pluto/xrrelay/apps/xr-client/internal/passthrough"
	"github.com/collabora-pluto/xrrelay/apps/xr-client/internal/samplequeue"
	"github.com/collabora-pluto/xrrelay/apps/xr-client/internal/xrsys"
)

// Renderer draws one sample's texture into the two side-by-side eye
// halves of the acquired swapchain image. The concrete GLES
// implementation (framebuffer binding, shader dispatch, the
// additive-to-alpha transform) is an external collaborator out of scope
// for this repository; Renderer is the seam it plugs into.
type Renderer interface {
	Render(img xrsys.SwapchainImage, sample samplequeue.Sample, clear passthrough.ClearColor, additiveToAlpha bool) error
}
