// Package frameloop is a minimal real-time rendering frame loop on an
// explicit GPU API.
//
// # Overview
//
// Graphics owns the GPU device and every object created from it. A frame
// is recorded into a single reusable command list, submitted through a
// fence Gate that blocks until the GPU is done, and presented from a
// rotating set of surface images:
//
//	g := frameloop.New()
//	if err := g.Initialize(win); err != nil {
//	    return err
//	}
//	defer g.Close()
//
//	for win.PollEvents() {
//	    if err := g.Clear(pso); err != nil {
//	        return err
//	    }
//	    rec := g.Recorder()
//	    rec.SetRootSignature(rs)
//	    rec.SetVertexBuffers(0, mesh.VertexBufferView())
//	    rec.SetTopology(driver.TopologyTriangleList)
//	    rec.Draw(mesh.VertexCount(), 1, 0, 0)
//	    if err := g.Present(); err != nil {
//	        return err
//	    }
//	}
//
// # Resource states
//
// Every Buffer and Image carries the state it was last transitioned to.
// Recorder.Transition names the expected before state and fails with a
// *StateError when it does not match, before anything is recorded.
//
// # Uploads
//
// Default buffers are filled through an Upload buffer with Copy, which
// writes the upload memory immediately and records the GPU copy between
// Common->CopyDest and CopyDest->GenericRead transitions.
//
// # Drivers
//
// The GPU is reached through the driver package. driver/soft is the
// default and also serves as the software fallback adapter; driver/wgpu
// runs on gogpu/wgpu.
package frameloop
