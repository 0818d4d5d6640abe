// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"errors"
	"image"
	"slices"
	"testing"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/frameloop/driver"
	"github.com/gogpu/frameloop/driver/soft"
)

// newNoopFactory returns a factory over the noop hal backend.
func newNoopFactory(t *testing.T, opts ...Option) *Factory {
	t.Helper()
	inst, err := noop.API{}.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	t.Cleanup(inst.Destroy)
	f, err := NewFactory(append([]Option{WithInstance(inst)}, opts...)...)
	if err != nil {
		t.Fatalf("NewFactory failed: %v", err)
	}
	return f
}

type testDevice struct {
	f     *Factory
	dev   driver.Device
	q     driver.Queue
	alloc driver.CmdAllocator
	list  driver.CmdList
	fence driver.Fence
	value uint64
}

func newTestDevice(t *testing.T, opts ...Option) *testDevice {
	t.Helper()
	f := newNoopFactory(t, opts...)
	adapters, err := f.Adapters()
	if err != nil || len(adapters) == 0 {
		t.Fatalf("Adapters() = %d, %v", len(adapters), err)
	}
	dev, err := adapters[0].CreateDevice(driver.FeatureLevel11_0)
	if err != nil {
		t.Fatalf("CreateDevice: %v", err)
	}
	td := &testDevice{f: f, dev: dev}
	if td.q, err = dev.CreateCommandQueue(); err != nil {
		t.Fatalf("CreateCommandQueue: %v", err)
	}
	if td.alloc, err = dev.CreateCommandAllocator(); err != nil {
		t.Fatalf("CreateCommandAllocator: %v", err)
	}
	if td.list, err = dev.CreateCommandList(td.alloc, nil); err != nil {
		t.Fatalf("CreateCommandList: %v", err)
	}
	if td.fence, err = dev.CreateFence(0); err != nil {
		t.Fatalf("CreateFence: %v", err)
	}
	return td
}

func (td *testDevice) submit(t *testing.T) {
	t.Helper()
	if err := td.list.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	td.q.Execute(td.list)
	td.value++
	if err := td.q.Signal(td.fence, td.value); err != nil {
		t.Fatalf("Signal: %v", err)
	}
	ev := driver.NewEvent()
	if err := td.fence.SetEventOnCompletion(td.value, ev); err != nil {
		t.Fatalf("SetEventOnCompletion: %v", err)
	}
	if !ev.Wait(5 * time.Second) {
		t.Fatal("timed out waiting for the fence")
	}
}

func (td *testDevice) close() {
	td.fence.Release()
	td.list.Release()
	td.alloc.Release()
	td.q.Release()
	td.dev.Release()
	td.f.Release()
}

func TestAdapters(t *testing.T) {
	f := newNoopFactory(t)
	defer f.Release()

	if f.Name() != "wgpu" {
		t.Errorf("Name() = %q", f.Name())
	}
	adapters, err := f.Adapters()
	if err != nil {
		t.Fatalf("Adapters: %v", err)
	}
	if len(adapters) == 0 {
		t.Fatal("expected at least one noop adapter")
	}
	_, err = adapters[0].CreateDevice(driver.FeatureLevel12_0)
	if !errors.Is(err, driver.ErrNoDevice) {
		t.Errorf("CreateDevice(12_0) error = %v, want ErrNoDevice", err)
	}
}

func TestAdapterRank(t *testing.T) {
	if adapterRank(gputypes.DeviceTypeDiscreteGPU) >= adapterRank(gputypes.DeviceTypeIntegratedGPU) {
		t.Error("discrete GPUs must rank before integrated GPUs")
	}
}

func TestWarpAdapter(t *testing.T) {
	f := newNoopFactory(t)
	if _, err := f.WarpAdapter(); !errors.Is(err, driver.ErrUnsupported) {
		t.Errorf("WarpAdapter without fallback error = %v, want ErrUnsupported", err)
	}

	sf := soft.NewFactory()
	f = newNoopFactory(t, WithFallback(sf))
	a, err := f.WarpAdapter()
	if err != nil {
		t.Fatalf("WarpAdapter: %v", err)
	}
	if !a.Info().Software {
		t.Error("fallback adapter must be software")
	}
	f.Release()
	if got := sf.Releases(); !slices.Equal(got, []string{"factory"}) {
		t.Errorf("fallback releases = %v, want [factory]", got)
	}
}

func TestFenceCompletion(t *testing.T) {
	td := newTestDevice(t)
	defer td.close()

	if got := td.fence.CompletedValue(); got != 0 {
		t.Fatalf("CompletedValue() = %d, want 0", got)
	}
	for i := 0; i < 3; i++ {
		td.submit(t)
		if err := td.alloc.Reset(); err != nil {
			t.Fatalf("allocator Reset after completion: %v", err)
		}
		if err := td.list.Reset(td.alloc, nil); err != nil {
			t.Fatalf("list Reset: %v", err)
		}
	}
	if got := td.fence.CompletedValue(); got != 3 {
		t.Errorf("CompletedValue() = %d, want 3", got)
	}

	// A value already reached signals at once.
	ev := driver.NewEvent()
	if err := td.fence.SetEventOnCompletion(2, ev); err != nil {
		t.Fatal(err)
	}
	if !ev.Wait(time.Millisecond) {
		t.Error("event for a reached value was not signaled")
	}
	if len(td.f.Violations()) != 0 {
		t.Errorf("violations: %v", td.f.Violations())
	}
}

func TestFenceInitialValue(t *testing.T) {
	td := newTestDevice(t)
	defer td.close()

	f, err := td.dev.CreateFence(41)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Release()
	if got := f.CompletedValue(); got != 41 {
		t.Errorf("CompletedValue() = %d, want 41", got)
	}
	if err := f.SetEventOnCompletion(1, nil); !errors.Is(err, driver.ErrInvalidArg) {
		t.Errorf("nil event error = %v, want ErrInvalidArg", err)
	}
}

// Losing the device wakes pending waiters without completing their
// values, and later waits are refused.
func TestFenceWakesWaitersOnDeviceLoss(t *testing.T) {
	td := newTestDevice(t)
	defer td.close()

	f := td.fence.(*fence)
	ev := driver.NewEvent()
	if err := f.SetEventOnCompletion(1, ev); err != nil {
		t.Fatal(err)
	}
	f.d.markLost("wait", errors.New("device reset"))
	f.signal(1)

	if !ev.Wait(time.Second) {
		t.Fatal("waiter not woken after device loss")
	}
	if got := f.CompletedValue(); got != 0 {
		t.Errorf("CompletedValue() = %d, want 0", got)
	}
	if err := f.SetEventOnCompletion(2, driver.NewEvent()); !errors.Is(err, driver.ErrDeviceRemoved) {
		t.Errorf("SetEventOnCompletion after loss = %v, want ErrDeviceRemoved", err)
	}
}

func TestBuffers(t *testing.T) {
	td := newTestDevice(t)
	defer td.close()

	def, err := td.dev.CreateBuffer(driver.HeapDefault, 108, driver.StateCommon)
	if err != nil {
		t.Fatal(err)
	}
	defer def.Release()
	if _, err := def.Map(); !errors.Is(err, driver.ErrNotMappable) {
		t.Errorf("Map of default buffer error = %v, want ErrNotMappable", err)
	}

	up, err := td.dev.CreateBuffer(driver.HeapUpload, 108, driver.StateGenericRead)
	if err != nil {
		t.Fatal(err)
	}
	defer up.Release()
	mem, err := up.Map()
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	if len(mem) != 108 {
		t.Errorf("len(Map()) = %d, want 108", len(mem))
	}
	mem[0] = 0xFF
	up.Unmap()

	if def.GPUAddress() == up.GPUAddress() {
		t.Error("buffers share a GPU address")
	}
	if _, err := td.dev.CreateBuffer(driver.HeapUpload, 16, driver.StateCommon); !errors.Is(err, driver.ErrInvalidArg) {
		t.Errorf("upload buffer in Common error = %v, want ErrInvalidArg", err)
	}
	if _, err := td.dev.CreateBuffer(driver.HeapDefault, 0, driver.StateCommon); !errors.Is(err, driver.ErrInvalidArg) {
		t.Errorf("zero-sized buffer error = %v, want ErrInvalidArg", err)
	}
	if fp := td.dev.CopyableFootprint(def); fp.TotalBytes != 108 || fp.RowPitch != 256 {
		t.Errorf("footprint = %+v", fp)
	}

	td.list.Barrier(driver.Barrier{Resource: def, Before: driver.StateCommon, After: driver.StateCopyDest})
	td.list.CopyBufferRegion(def, 0, up, 0, 108)
	td.list.Barrier(driver.Barrier{Resource: def, Before: driver.StateCopyDest, After: driver.StateGenericRead})
	td.submit(t)

	want := []string{"Barrier(default-buffer Common->CopyDest)", "CopyBufferRegion", "Barrier(default-buffer CopyDest->GenericRead)"}
	if got := Ops(td.list); !slices.Equal(got, want) {
		t.Errorf("Ops() = %v, want %v", got, want)
	}
	if len(td.f.Violations()) != 0 {
		t.Errorf("violations: %v", td.f.Violations())
	}
}

func TestBarrierMismatch(t *testing.T) {
	td := newTestDevice(t)
	defer td.close()

	b, err := td.dev.CreateBuffer(driver.HeapDefault, 64, driver.StateCommon)
	if err != nil {
		t.Fatal(err)
	}
	defer b.Release()
	td.list.Barrier(driver.Barrier{Resource: b, Before: driver.StateCopyDest, After: driver.StateGenericRead})
	td.submit(t)

	v := td.f.Violations()
	if len(v) != 1 || !errors.Is(v[0], driver.ErrInvalidArg) {
		t.Errorf("violations = %v, want one ErrInvalidArg", v)
	}
}

func TestCloseReportsRecordingError(t *testing.T) {
	td := newTestDevice(t)
	defer td.close()

	td.list.ClearRenderTarget(driver.Descriptor{}, [4]float32{})
	if err := td.list.Close(); !errors.Is(err, driver.ErrInvalidArg) {
		t.Errorf("Close() error = %v, want ErrInvalidArg", err)
	}
	if err := td.list.Close(); !errors.Is(err, driver.ErrInvalidArg) {
		t.Errorf("second Close() error = %v, want ErrInvalidArg", err)
	}
}

func TestAllocatorResetWhileRecording(t *testing.T) {
	td := newTestDevice(t)
	defer td.close()

	if err := td.alloc.Reset(); !errors.Is(err, driver.ErrInvalidArg) {
		t.Errorf("Reset while recording error = %v, want ErrInvalidArg", err)
	}
	if err := td.list.Reset(td.alloc, nil); !errors.Is(err, driver.ErrInvalidArg) {
		t.Errorf("Reset of an open list error = %v, want ErrInvalidArg", err)
	}
}

func TestClearAndPresent(t *testing.T) {
	type shown struct {
		index int
		size  image.Point
	}
	var presented []shown
	td := newTestDevice(t, WithPresentFunc(func(i int, img *image.RGBA) {
		presented = append(presented, shown{i, img.Rect.Size()})
	}))
	defer td.close()

	sc, err := td.dev.CreateSwapchain(td.q, driver.SwapchainDesc{
		Width: 64, Height: 48, Format: driver.FormatRGBA8Unorm, BufferCount: 2,
		Samples: driver.SampleDesc{Count: 1},
	})
	if err != nil {
		t.Fatalf("CreateSwapchain: %v", err)
	}
	rtv, err := td.dev.CreateDescriptorHeap(driver.DescriptorRenderTarget, 2)
	if err != nil {
		t.Fatal(err)
	}
	ds, err := td.dev.CreateDepthStencil(64, 48, driver.SampleDesc{Count: 1})
	if err != nil {
		t.Fatal(err)
	}
	dsv, err := td.dev.CreateDescriptorHeap(driver.DescriptorDepthStencil, 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := dsv.CreateView(ds, 0); err != nil {
		t.Fatal(err)
	}
	if err := rtv.CreateView(ds, 0); !errors.Is(err, driver.ErrInvalidArg) {
		t.Errorf("depth image in a render target heap error = %v, want ErrInvalidArg", err)
	}
	var images []driver.Image
	for i := 0; i < sc.BufferCount(); i++ {
		img, err := sc.Image(i)
		if err != nil {
			t.Fatal(err)
		}
		if err := rtv.CreateView(img, i); err != nil {
			t.Fatal(err)
		}
		images = append(images, img)
	}

	td.list.Barrier(driver.Barrier{Resource: ds, Before: driver.StateCommon, After: driver.StateDepthWrite})
	for frame := 0; frame < 3; frame++ {
		i := sc.CurrentIndex()
		img := images[i]
		td.list.Barrier(driver.Barrier{Resource: img, Before: driver.StatePresent, After: driver.StateRenderTarget})
		td.list.ClearRenderTarget(rtv.Handle(i), [4]float32{0, 0, 1, 1})
		td.list.ClearDepthStencil(dsv.Handle(0), 1, 0)
		td.list.SetRenderTargets(rtv.Handle(i), dsv.Handle(0))
		td.list.Barrier(driver.Barrier{Resource: img, Before: driver.StateRenderTarget, After: driver.StatePresent})
		td.submit(t)
		if err := sc.Present(1); err != nil {
			t.Fatalf("Present: %v", err)
		}
		if err := td.alloc.Reset(); err != nil {
			t.Fatal(err)
		}
		if err := td.list.Reset(td.alloc, nil); err != nil {
			t.Fatal(err)
		}
	}
	if err := td.list.Close(); err != nil {
		t.Fatal(err)
	}

	want := []shown{{0, image.Pt(64, 48)}, {1, image.Pt(64, 48)}, {0, image.Pt(64, 48)}}
	if !slices.Equal(presented, want) {
		t.Errorf("presented = %v, want %v", presented, want)
	}
	if err := sc.SetFullscreen(true); !errors.Is(err, driver.ErrUnsupported) {
		t.Errorf("SetFullscreen without a window error = %v, want ErrUnsupported", err)
	}

	for _, img := range images {
		img.Release()
	}
	sc.Release()
	ds.Release()
	dsv.Release()
	rtv.Release()
	if len(td.f.Violations()) != 0 {
		t.Errorf("violations: %v", td.f.Violations())
	}
}

func TestCreatePipelineRejectsBadShaders(t *testing.T) {
	td := newTestDevice(t)
	defer td.close()

	rs, err := td.dev.CreateRootSignature(driver.RootSignatureDesc{Flags: driver.RootSignatureAllowInputLayout})
	if err != nil {
		t.Fatal(err)
	}
	defer rs.Release()
	_, err = td.dev.CreatePipeline(&driver.PipelineDesc{
		RootSignature: rs,
		VS:            []byte{1, 2, 3},
		PS:            []byte{1, 2, 3, 4},
		InputLayout:   []driver.InputElement{{Semantic: "POSITION", Format: driver.FormatR32G32B32Float}},
		Stride:        12,
	})
	if !errors.Is(err, driver.ErrInvalidArg) {
		t.Errorf("CreatePipeline error = %v, want ErrInvalidArg", err)
	}
	_, err = td.dev.CreatePipeline(&driver.PipelineDesc{
		RootSignature: rs,
		VS:            []byte{1, 2, 3, 4},
		PS:            []byte{1, 2, 3, 4},
		InputLayout:   []driver.InputElement{{Semantic: "POSITION", Format: driver.FormatRGBA8Unorm}},
	})
	if !errors.Is(err, driver.ErrInvalidArg) {
		t.Errorf("CreatePipeline with a texture vertex format error = %v, want ErrInvalidArg", err)
	}
}

func TestSpirvWords(t *testing.T) {
	words, err := spirvWords([]byte{0x03, 0x02, 0x23, 0x07, 1, 0, 0, 0})
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(words, []uint32{0x07230203, 1}) {
		t.Errorf("spirvWords() = %#x", words)
	}
	if _, err := spirvWords(nil); !errors.Is(err, driver.ErrInvalidArg) {
		t.Errorf("empty SPIR-V error = %v, want ErrInvalidArg", err)
	}
}

type mockDevice struct{}

func (m *mockDevice) Poll(wait bool) {}
func (m *mockDevice) Destroy()       {}

type mockQueue struct{}

type mockAdapter struct{}

// mockProvider implements gpucontext.DeviceProvider.
type mockProvider struct{}

func (m *mockProvider) Device() gpucontext.Device   { return &mockDevice{} }
func (m *mockProvider) Queue() gpucontext.Queue     { return &mockQueue{} }
func (m *mockProvider) Adapter() gpucontext.Adapter { return &mockAdapter{} }
func (m *mockProvider) SurfaceFormat() gputypes.TextureFormat {
	return gputypes.TextureFormatBGRA8Unorm
}

// halProvider also exposes HAL objects.
type halProvider struct {
	mockProvider
	device hal.Device
	queue  hal.Queue
}

func (p *halProvider) HalDevice() any { return p.device }
func (p *halProvider) HalQueue() any  { return p.queue }

func TestFromProvider(t *testing.T) {
	if _, err := FromProvider(&mockProvider{}); !errors.Is(err, driver.ErrUnsupported) {
		t.Errorf("FromProvider without HAL error = %v, want ErrUnsupported", err)
	}

	inst, err := noop.API{}.CreateInstance(nil)
	if err != nil {
		t.Fatal(err)
	}
	defer inst.Destroy()
	open, err := inst.EnumerateAdapters(nil)[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		t.Fatal(err)
	}
	defer open.Device.Destroy()

	if _, err := FromProvider(&halProvider{}); !errors.Is(err, driver.ErrInvalidArg) {
		t.Errorf("FromProvider with nil HAL objects error = %v, want ErrInvalidArg", err)
	}
	f, err := FromProvider(&halProvider{device: open.Device, queue: open.Queue})
	if err != nil {
		t.Fatalf("FromProvider: %v", err)
	}
	defer f.Release()
	adapters, err := f.Adapters()
	if err != nil || len(adapters) != 1 {
		t.Fatalf("Adapters() = %d, %v", len(adapters), err)
	}
	if name := adapters[0].Info().Name; name != "host device" {
		t.Errorf("Name = %q", name)
	}
	dev, err := adapters[0].CreateDevice(driver.FeatureLevel11_0)
	if err != nil {
		t.Fatal(err)
	}
	// The host keeps ownership of the hal device.
	dev.Release()
}
