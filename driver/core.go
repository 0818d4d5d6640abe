// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package driver

// Device is a logical device. It creates every other GPU object and must
// outlive all of them.
type Device interface {
	Releaser

	// MaxFeatureLevel returns the highest feature level supported.
	MaxFeatureLevel() FeatureLevel

	// CreateCommandQueue creates the direct command queue.
	CreateCommandQueue() (Queue, error)

	// CreateCommandAllocator creates the backing memory for command lists.
	CreateCommandAllocator() (CmdAllocator, error)

	// CreateCommandList creates a command list bound to alloc.
	// The list is returned open (recording), with pso as its initial
	// pipeline. pso may be nil.
	CreateCommandList(alloc CmdAllocator, pso Pipeline) (CmdList, error)

	// CreateFence creates a fence whose completed value starts at initial.
	CreateFence(initial uint64) (Fence, error)

	// CreateBuffer creates a buffer of size bytes in the given heap,
	// starting in state initial.
	CreateBuffer(heap HeapType, size uint64, initial State) (Buffer, error)

	// CreateDepthStencil creates a D24S8 depth/stencil image in StateCommon.
	CreateDepthStencil(width, height int, samples SampleDesc) (Image, error)

	// CreateSwapchain creates a swapchain presenting through q.
	// Its images start in StatePresent.
	CreateSwapchain(q Queue, desc SwapchainDesc) (Swapchain, error)

	// CreateDescriptorHeap creates a heap of n descriptors of the given kind.
	CreateDescriptorHeap(kind DescriptorKind, n int) (DescriptorHeap, error)

	// CreateRootSignature creates the binding layout for pipelines.
	CreateRootSignature(desc RootSignatureDesc) (RootSignature, error)

	// CreatePipeline creates a graphics pipeline.
	CreatePipeline(desc *PipelineDesc) (Pipeline, error)

	// CopyableFootprint returns the layout required to copy data into b
	// through an upload buffer.
	CopyableFootprint(b Buffer) Footprint
}

// Queue is an ordered channel of command batches.
type Queue interface {
	Releaser

	// Execute submits closed command lists for asynchronous execution.
	Execute(lists ...CmdList)

	// Signal makes the GPU write value into f once all previously
	// executed work has completed.
	Signal(f Fence, value uint64) error
}

// CmdAllocator owns command list memory. It must not be reset while a
// list recorded from it is still executing.
type CmdAllocator interface {
	Releaser
	Reset() error
}

// CmdList records GPU commands.
type CmdList interface {
	Releaser

	// Reset reopens the list for recording against alloc. Previously
	// recorded content is discarded.
	Reset(alloc CmdAllocator, pso Pipeline) error

	// Close seals the list so it can be executed.
	Close() error

	Barrier(barriers ...Barrier)
	SetViewport(v Viewport)
	SetScissor(r Rect)
	ClearRenderTarget(rt Descriptor, color [4]float32)
	ClearDepthStencil(ds Descriptor, depth float32, stencil uint8)
	SetRenderTargets(rt, ds Descriptor)
	SetPipeline(pso Pipeline)
	SetRootSignature(rs RootSignature)
	SetVertexBuffers(slot int, views ...VertexBufferView)
	SetTopology(t Topology)
	Draw(vertexCount, instanceCount, firstVertex, firstInstance int)
	CopyBufferRegion(dst Buffer, dstOffset uint64, src Buffer, srcOffset, size uint64)
}

// Fence is a GPU-written counter.
type Fence interface {
	Releaser

	// CompletedValue returns the last value written by the GPU.
	// It never decreases.
	CompletedValue() uint64

	// SetEventOnCompletion signals ev once the completed value reaches
	// value. If it already has, ev is signaled immediately.
	SetEventOnCompletion(value uint64, ev *Event) error
}

// Resource is a buffer or an image.
type Resource interface {
	Releaser
	Label() string
}

// Buffer is a linear GPU allocation.
type Buffer interface {
	Resource
	Size() uint64
	Heap() HeapType

	// Map returns CPU-visible memory. Only HeapUpload buffers are mappable.
	Map() ([]byte, error)
	Unmap()

	// GPUAddress is an opaque address used by vertex buffer views.
	GPUAddress() uint64
}

// Image is a 2D GPU image.
type Image interface {
	Resource
	Width() int
	Height() int
	Format() Format
}

// Swapchain is a rotating set of presentable images.
type Swapchain interface {
	Releaser
	BufferCount() int
	Image(i int) (Image, error)

	// CurrentIndex returns the index of the image that the next Present
	// shows.
	CurrentIndex() int

	// Present shows the current image. syncInterval 0 presents
	// immediately; 1 waits for vertical refresh.
	Present(syncInterval int) error

	SetFullscreen(on bool) error
}

// SwapchainDesc describes a swapchain.
type SwapchainDesc struct {
	Window      uintptr
	Width       int
	Height      int
	Format      Format
	BufferCount int
	Samples     SampleDesc
	AllowTear   bool
}

// SampleDesc is the multisampling configuration.
type SampleDesc struct {
	Count   int
	Quality int
}

// DescriptorKind is the kind of view a descriptor heap holds.
type DescriptorKind int

const (
	DescriptorRenderTarget DescriptorKind = iota
	DescriptorDepthStencil
)

// DescriptorHeap holds views into images.
type DescriptorHeap interface {
	Releaser
	Kind() DescriptorKind
	Len() int

	// CreateView writes a view of img at index i.
	CreateView(img Image, i int) error

	// Handle returns the descriptor at index i.
	Handle(i int) Descriptor
}

// Descriptor identifies a view in a heap.
type Descriptor struct {
	Heap  DescriptorHeap
	Index int
}

// RootSignatureFlags configure a root signature.
type RootSignatureFlags int

const (
	RootSignatureAllowInputLayout RootSignatureFlags = 1 << iota
)

// RootSignatureDesc describes a root signature.
type RootSignatureDesc struct {
	Flags RootSignatureFlags
}

// RootSignature is the binding layout of a pipeline.
type RootSignature interface {
	Releaser
}

// Pipeline is a compiled graphics pipeline state.
type Pipeline interface {
	Releaser
}

// Format is a pixel or vertex attribute format.
type Format int

const (
	FormatUnknown Format = iota
	FormatRGBA8Unorm
	FormatD24UnormS8Uint
	FormatR32G32Float
	FormatR32G32B32Float
	FormatR32G32B32A32Float
)

// Size returns the size in bytes of one element of f.
func (f Format) Size() int {
	switch f {
	case FormatRGBA8Unorm, FormatD24UnormS8Uint:
		return 4
	case FormatR32G32Float:
		return 8
	case FormatR32G32B32Float:
		return 12
	case FormatR32G32B32A32Float:
		return 16
	default:
		return 0
	}
}

// InputElement describes one vertex attribute.
type InputElement struct {
	Semantic string
	Format   Format
	Offset   int
}

// FillMode selects how triangles are rasterized.
type FillMode int

const (
	FillSolid FillMode = iota
	FillWireframe
)

// CullMode selects which faces are discarded.
type CullMode int

const (
	CullNone CullMode = iota
	CullFront
	CullBack
)

// CompareFunc is a depth comparison.
type CompareFunc int

const (
	CompareLess CompareFunc = iota
	CompareLessEqual
	CompareAlways
)

// Topology is the primitive topology.
type Topology int

const (
	TopologyTriangleList Topology = iota
	TopologyTriangleStrip
)

// PipelineDesc describes a graphics pipeline.
type PipelineDesc struct {
	RootSignature RootSignature

	// VS and PS are opaque shader byte code.
	VS []byte
	PS []byte

	InputLayout []InputElement
	Stride      int

	Fill        FillMode
	Cull        CullMode
	FrontCCW    bool
	DepthEnable bool
	DepthFunc   CompareFunc
	Topology    Topology
	RTVFormat   Format
	DSVFormat   Format
	Samples     SampleDesc
}

// VertexBufferView binds a vertex buffer.
type VertexBufferView struct {
	Buffer Buffer
	Size   uint32
	Stride uint32
}

// Viewport is the rasterizer viewport.
type Viewport struct {
	X, Y          float32
	Width, Height float32
	MinDepth      float32
	MaxDepth      float32
}

// Rect is a scissor rectangle.
type Rect struct {
	Left, Top, Right, Bottom int
}
