package manager

import (
	"context"
	"errors"
	"testing"

	"diffusiond/pkg/types"
)

type fakeProber struct{ gotRuntime *types.RuntimeInfo }

func (p *fakeProber) Report(_ context.Context, rt *types.RuntimeInfo) types.Diagnostics {
	p.gotRuntime = rt
	return types.Diagnostics{Accelerator: true, DeviceName: "probe", StatusOutput: "nvidia-smi output"}
}

func TestStatusStates(t *testing.T) {
	rt := &fakeRuntime{}
	m := New(rt, DeviceCPU)
	if st := m.Status(); st.State != string(StateIdle) || len(st.Handles) != 0 {
		t.Fatalf("expected idle with no handles, got %+v", st)
	}
	if _, err := m.Generate(testCtx(t), types.GenerateRequest{Prompt: "x"}); err != nil {
		t.Fatalf("generate: %v", err)
	}
	st := m.Status()
	if len(st.Handles) != 1 || st.Handles[0].ModelID != xlID || st.Handles[0].Generations != 1 {
		t.Fatalf("unexpected handles %+v", st.Handles)
	}
	if st.Handles[0].Precision != "float32" || st.LoadsTotal != 1 || st.GenerationsTotal != 1 {
		t.Fatalf("unexpected status %+v", st)
	}
	m.genCh <- struct{}{}
	if s := m.Status(); s.State != string(StateGenerating) || !s.LockHeld {
		t.Fatalf("expected generating while lock held, got %+v", s)
	}
	<-m.genCh
}

func TestDiagnosticsWithoutProberUsesRuntime(t *testing.T) {
	rt := &fakeRuntime{info: types.RuntimeInfo{
		Accelerator: true,
		DeviceName:  "NVIDIA L4",
		Devices:     []types.DeviceProperties{{Name: "NVIDIA L4"}},
	}}
	m := New(rt, DeviceCUDA)
	d := m.Diagnostics(context.Background())
	if !d.Accelerator || d.DeviceName != "NVIDIA L4" || d.DeviceCount != 1 {
		t.Fatalf("unexpected diagnostics %+v", d)
	}
	if d.Device != "cuda" || d.Precision != "float16" || d.RuntimeError != "" {
		t.Fatalf("unexpected placement %+v", d)
	}
}

func TestDiagnosticsRuntimeErrorIsReported(t *testing.T) {
	rt := &fakeRuntime{infoErr: errors.New("connection refused")}
	p := &fakeProber{}
	m := NewWithConfig(ManagerConfig{Runtime: rt, Prober: p})
	d := m.Diagnostics(context.Background())
	if p.gotRuntime != nil {
		t.Fatalf("prober should get nil runtime info on error")
	}
	if d.RuntimeError != "connection refused" || d.DeviceName != "probe" || d.Device != "cpu" {
		t.Fatalf("unexpected diagnostics %+v", d)
	}
}

func TestDiagnosticsNoRuntime(t *testing.T) {
	m := New(nil, DeviceCPU)
	d := m.Diagnostics(context.Background())
	if d.RuntimeError == "" || d.Precision != "float32" {
		t.Fatalf("expected runtime error and cpu precision, got %+v", d)
	}
}

func TestSanityCheck(t *testing.T) {
	if r := New(nil, DeviceCPU).SanityCheck(context.Background()); r.RuntimeConfigured || r.Error == "" {
		t.Fatalf("expected unconfigured report, got %+v", r)
	}
	rt := &fakeRuntime{info: types.RuntimeInfo{Accelerator: true, DeviceName: "gpu0"}}
	r := New(rt, DeviceCUDA).SanityCheck(context.Background())
	if !r.RuntimeConfigured || !r.RuntimeReachable || !r.Accelerator || r.DeviceName != "gpu0" {
		t.Fatalf("unexpected report %+v", r)
	}
	rt.infoErr = errors.New("down")
	if r := New(rt, DeviceCUDA).SanityCheck(context.Background()); r.RuntimeReachable || r.Error != "down" {
		t.Fatalf("expected unreachable report, got %+v", r)
	}
}
