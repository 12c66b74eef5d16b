package graph

import (
	"errors"
	"fmt"
	"testing"

	"github.com/smazurov/framegraph/internal/compiler"
	"github.com/smazurov/framegraph/internal/events"
	"github.com/smazurov/framegraph/internal/filters"
	"github.com/smazurov/framegraph/internal/frame"
	"github.com/smazurov/framegraph/internal/source"
	"github.com/smazurov/framegraph/internal/topology"
)

const overlaySpec = "[in1] scale=iw/2:ih/2 [mid]; [in2] [mid] overlay=0:0 [out1]"

func testPattern(frames int) *source.TestPattern {
	return &source.TestPattern{Width: 16, Height: 8, Format: frame.PixelFormatYUV420P, Frames: frames}
}

// textsub renders subtitles onto video; its subtitle input cannot be bound.
type textsub struct{}

func (textsub) InputPads() []topology.Pad {
	return []topology.Pad{{Name: "subtitles", Type: frame.MediaTypeSubtitle}}
}
func (textsub) OutputPads() []topology.Pad {
	return []topology.Pad{{Name: "default", Type: frame.MediaTypeVideo}}
}
func (textsub) Negotiate([]frame.Params) ([]frame.Params, error) {
	return []frame.Params{{Type: frame.MediaTypeVideo, PixelFormat: frame.PixelFormatGray8, Width: 2, Height: 2}}, nil
}
func (textsub) FilterFrame(int, *frame.Frame, topology.Emitter) error { return nil }
func (textsub) EndOfStream(_ int, out topology.Emitter) error          { return out.EndOfStream(0) }

// broken fails on every frame.
type broken struct{}

func (broken) InputPads() []topology.Pad {
	return []topology.Pad{{Name: "default", Type: frame.MediaTypeVideo}}
}
func (broken) OutputPads() []topology.Pad {
	return []topology.Pad{{Name: "default", Type: frame.MediaTypeVideo}}
}
func (broken) Negotiate(in []frame.Params) ([]frame.Params, error) { return in, nil }
func (broken) FilterFrame(int, *frame.Frame, topology.Emitter) error {
	return errors.New("broken filter")
}
func (broken) EndOfStream(_ int, out topology.Emitter) error { return out.EndOfStream(0) }

func testRegistry(t *testing.T) *filters.Registry {
	t.Helper()
	reg := filters.Default()
	defs := []filters.Definition{
		{Name: "textsub", New: func(filters.Options) (topology.Filter, error) { return textsub{}, nil }},
		{Name: "broken", New: func(filters.Options) (topology.Filter, error) { return broken{}, nil }},
	}
	for _, def := range defs {
		if err := reg.Register(def); err != nil {
			t.Fatal(err)
		}
	}
	return reg
}

func TestConfigureBindsEveryPad(t *testing.T) {
	rec := &events.Recorder{}
	g, err := New(overlaySpec, Options{Events: rec})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer g.Close()

	if err := g.Configure(testPattern(5)); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	if g.State() != StateConfigured {
		t.Fatalf("state = %s", g.State())
	}

	ins, outs := g.Inputs(), g.Outputs()
	if len(ins) != 2 || len(outs) != 1 {
		t.Fatalf("got %d inputs, %d outputs; want 2 and 1", len(ins), len(outs))
	}
	for _, ep := range ins {
		if ep.MediaType() != frame.MediaTypeVideo {
			t.Errorf("input %s has media type %s", ep.Name(), ep.MediaType())
		}
		p := ep.Params()
		if p.Width != 16 || p.Height != 8 || p.FrameRate != source.DefaultFrameRate || p.TimeBase != frame.TimeBaseMicro {
			t.Errorf("input %s params %v", ep.Name(), p)
		}
	}
	if ins[0].Name() != "in1" || ins[0].Ordinal() != 0 || ins[1].Name() != "in2" || ins[1].Ordinal() != 1 {
		t.Errorf("unexpected input order %s/%d %s/%d", ins[0].Name(), ins[0].Ordinal(), ins[1].Name(), ins[1].Ordinal())
	}
	if p := outs[0].Params(); p.Width != 16 || p.Height != 8 {
		t.Errorf("output negotiated %v", p)
	}

	var bound []string
	var states []string
	for _, ev := range rec.Events {
		switch e := ev.(type) {
		case events.EndpointBoundEvent:
			bound = append(bound, e.Direction+":"+e.Endpoint)
		case events.GraphStateChangedEvent:
			states = append(states, e.To)
		}
	}
	if fmt.Sprint(bound) != "[output:out1 input:in1 input:in2]" {
		t.Errorf("bind order = %v, want outputs first", bound)
	}
	if fmt.Sprint(states) != "[configuring configured]" {
		t.Errorf("states = %v", states)
	}
}

func TestConfigureInputsFirst(t *testing.T) {
	rec := &events.Recorder{}
	g, err := New(overlaySpec, Options{Events: rec, BindOrder: BindInputsFirst})
	if err != nil {
		t.Fatal(err)
	}
	if err := g.Configure(testPattern(5)); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	first := rec.Events[1].(events.EndpointBoundEvent)
	if first.Direction != "input" {
		t.Errorf("first bound endpoint is %s, want input", first.Direction)
	}
}

func TestNewRejectsMalformedDescription(t *testing.T) {
	g, err := New("[in1] scale=iw/2 [mid", Options{})
	if g != nil {
		t.Fatal("graph must not be constructed")
	}
	if !IsCode(err, CodeGraphParse) {
		t.Fatalf("expected GRAPH_PARSE, got %v", err)
	}
	var pe *compiler.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected the parse error to be wrapped, got %v", err)
	}
	if pe.Position != 17 {
		t.Errorf("position = %d, want 17", pe.Position)
	}
}

func TestDoubleBindKeepsPriorBindings(t *testing.T) {
	g, err := New(overlaySpec, Options{})
	if err != nil {
		t.Fatal(err)
	}
	out := compiler.Outputs(g.Pads())[0]

	first, err := g.BindOutput(out)
	if err != nil {
		t.Fatalf("first bind failed: %v", err)
	}
	if _, err := g.BindOutput(out); !IsCode(err, CodeEndpointBind) {
		t.Fatalf("expected ENDPOINT_BIND, got %v", err)
	}
	if g.State() != StateUnconfigured {
		t.Fatalf("double bind changed state to %s", g.State())
	}
	if outs := g.Outputs(); len(outs) != 1 || outs[0] != first {
		t.Fatal("prior binding was disturbed")
	}

	in := compiler.Inputs(g.Pads())[0]
	if _, err := g.BindInput(in, testPattern(5)); err != nil {
		t.Fatal(err)
	}
	if _, err := g.BindInput(in, testPattern(5)); !IsCode(err, CodeEndpointBind) {
		t.Fatalf("expected ENDPOINT_BIND for input, got %v", err)
	}

	// Configure binds only what is left.
	if err := g.Configure(testPattern(5)); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	if len(g.Inputs()) != 2 || len(g.Outputs()) != 1 {
		t.Fatalf("got %d inputs, %d outputs", len(g.Inputs()), len(g.Outputs()))
	}
}

func TestBindRejectsWrongDirection(t *testing.T) {
	g, err := New("null", Options{})
	if err != nil {
		t.Fatal(err)
	}
	in := compiler.Inputs(g.Pads())[0]
	if _, err := g.BindOutput(in); !IsCode(err, CodeEndpointBind) {
		t.Fatalf("expected ENDPOINT_BIND, got %v", err)
	}
	if g.State() != StateUnconfigured {
		t.Fatalf("state = %s", g.State())
	}
}

func TestUnsupportedMediaTypeFailsGraph(t *testing.T) {
	rec := &events.Recorder{}
	g, err := New("[sub] textsub [out]", Options{Registry: testRegistry(t), Events: rec})
	if err != nil {
		t.Fatal(err)
	}

	err = g.Configure(testPattern(5))
	if !IsCode(err, CodeUnsupportedMediaType) {
		t.Fatalf("expected UNSUPPORTED_MEDIA_TYPE, got %v", err)
	}
	if g.State() != StateFailed {
		t.Fatalf("state = %s, want failed", g.State())
	}
	if len(g.Inputs()) != 0 || len(g.Outputs()) != 0 {
		t.Fatal("endpoints remain bound after failure")
	}
	if !errors.Is(g.Err(), err) {
		t.Errorf("Err() = %v", g.Err())
	}

	last := rec.Events[len(rec.Events)-1].(events.GraphStateChangedEvent)
	if last.To != "failed" || last.Error == "" {
		t.Errorf("last event %+v", last)
	}

	if err := g.Configure(testPattern(5)); !IsCode(err, CodeInvalidState) {
		t.Fatalf("expected INVALID_STATE from failed graph, got %v", err)
	}
}

func TestReleasedEndpointsAreUnusable(t *testing.T) {
	g, err := New("[sub] textsub [out]", Options{Registry: testRegistry(t)})
	if err != nil {
		t.Fatal(err)
	}
	sinkEP, err := g.BindOutput(compiler.Outputs(g.Pads())[0])
	if err != nil {
		t.Fatal(err)
	}
	if err := g.Configure(testPattern(5)); err == nil {
		t.Fatal("expected configure to fail")
	}
	if _, _, err := sinkEP.Pull(); !IsCode(err, CodeDrain) {
		t.Fatalf("released sink should refuse pulls, got %v", err)
	}
}

func TestConfigureTwiceIsInvalid(t *testing.T) {
	g, err := New("null", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if err := g.Configure(testPattern(5)); err != nil {
		t.Fatal(err)
	}
	if err := g.Configure(testPattern(5)); !IsCode(err, CodeInvalidState) {
		t.Fatalf("expected INVALID_STATE, got %v", err)
	}
	if _, err := g.BindOutput(compiler.Outputs(g.Pads())[0]); !IsCode(err, CodeInvalidState) {
		t.Fatalf("expected INVALID_STATE on bind after configure, got %v", err)
	}
	if g.State() != StateConfigured {
		t.Fatalf("state = %s", g.State())
	}
}

func TestProbeFailures(t *testing.T) {
	tests := []struct {
		name string
		src  source.Source
	}{
		{name: "exhausted", src: source.Func(func(int, int) *frame.Frame { return nil })},
		{name: "wrong media type", src: source.Func(func(int, int) *frame.Frame {
			return frame.NewAudio(frame.SampleFormatS16, 48000, 2, 4)
		})},
		{name: "incomplete", src: source.Func(func(int, int) *frame.Frame {
			f := frame.NewVideo(frame.PixelFormatYUV420P, 4, 4)
			f.Planes = f.Planes[:1]
			return f
		})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := New("null", Options{})
			if err != nil {
				t.Fatal(err)
			}
			err = g.Configure(tt.src)
			if !IsCode(err, CodeEndpointBind) {
				t.Fatalf("expected ENDPOINT_BIND, got %v", err)
			}
			if g.State() != StateFailed || len(g.Outputs()) != 0 {
				t.Fatalf("state = %s outputs = %d", g.State(), len(g.Outputs()))
			}
		})
	}
}

func TestAudioProbeForcesS16(t *testing.T) {
	g, err := New("anull", Options{})
	if err != nil {
		t.Fatal(err)
	}
	flt := source.Func(func(int, int) *frame.Frame {
		return frame.NewAudio(frame.SampleFormatFLT, 48000, 2, 4)
	})
	if err := g.Configure(flt); !IsCode(err, CodeEndpointBind) {
		t.Fatalf("expected ENDPOINT_BIND for float audio, got %v", err)
	}

	g, err = New("anull", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if err := g.Configure(source.NewTone()); err != nil {
		t.Fatal(err)
	}
	p := g.Inputs()[0].Params()
	if p.SampleFormat != frame.SampleFormatS16 || p.SampleRate != 48000 || p.Channels != 2 {
		t.Fatalf("params %v", p)
	}
	if p.TimeBase != (frame.Rational{Num: 1, Den: 48000}) {
		t.Errorf("time base %v", p.TimeBase)
	}
}

func TestOutputFormatAllowList(t *testing.T) {
	g, err := New("null", Options{PixelFormats: []frame.PixelFormat{frame.PixelFormatGray8}})
	if err != nil {
		t.Fatal(err)
	}
	err = g.Configure(testPattern(5))
	if !IsCode(err, CodeEndpointBind) {
		t.Fatalf("expected ENDPOINT_BIND, got %v", err)
	}

	g, err = New("format=gray", Options{PixelFormats: []frame.PixelFormat{frame.PixelFormatGray8}})
	if err != nil {
		t.Fatal(err)
	}
	if err := g.Configure(testPattern(5)); err != nil {
		t.Fatalf("converted output should be accepted: %v", err)
	}
}

func TestCycleFailsTopologyValidation(t *testing.T) {
	g, err := New("[a] null [b]; [b] null [a]", Options{})
	if err != nil {
		t.Fatal(err)
	}
	err = g.Configure(testPattern(5))
	if !IsCode(err, CodeTopologyValidation) {
		t.Fatalf("expected TOPOLOGY_VALIDATION, got %v", err)
	}
	var ve *topology.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("validation cause not preserved: %v", err)
	}
}

func TestEndpointPushAndPull(t *testing.T) {
	g, err := New("null", Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer g.Close()
	src := testPattern(5)
	if err := g.Configure(src); err != nil {
		t.Fatal(err)
	}
	in, out := g.Inputs()[0], g.Outputs()[0]

	if _, status, err := out.Pull(); err != nil || status != StatusWouldBlock {
		t.Fatalf("pull on empty output = %s, %v", status, err)
	}
	if in.PendingBackpressureRequests() != 1 {
		t.Fatalf("pending = %d, want 1", in.PendingBackpressureRequests())
	}

	if err := in.Push(src.Next(0, 0)); err != nil {
		t.Fatal(err)
	}
	if in.PendingBackpressureRequests() != 0 {
		t.Fatal("push must clear pending requests")
	}
	if err := in.Push(frame.NewVideo(frame.PixelFormatYUV420P, 8, 8)); !IsCode(err, CodeFeed) {
		t.Fatalf("expected FEED for mismatched frame, got %v", err)
	}

	if err := in.Push(nil); err != nil {
		t.Fatal(err)
	}
	if err := in.Push(nil); err != nil {
		t.Fatalf("second EOF must be a no-op, got %v", err)
	}
	if err := in.Push(src.Next(1, 0)); !IsCode(err, CodeFeed) {
		t.Fatalf("expected FEED after EOF, got %v", err)
	}

	f, status, err := out.Pull()
	if err != nil || status != StatusReady || f == nil {
		t.Fatalf("expected a ready frame, got %s %v", status, err)
	}
	if out.EOF() != true {
		t.Error("output should report EOF once its queue is empty")
	}
	if _, status, _ := out.Pull(); status != StatusEOF {
		t.Fatalf("status = %s, want eof", status)
	}
}

func TestFilterFailureSurfacesOnDrain(t *testing.T) {
	g, err := New("broken", Options{Registry: testRegistry(t)})
	if err != nil {
		t.Fatal(err)
	}
	src := testPattern(5)
	if err := g.Configure(src); err != nil {
		t.Fatal(err)
	}
	in, out := g.Inputs()[0], g.Outputs()[0]

	err = in.Push(src.Next(0, 0))
	if !IsCode(err, CodeFeed) {
		t.Fatalf("expected FEED, got %v", err)
	}
	var ne *topology.NodeError
	if !errors.As(err, &ne) || ne.Node != "Parsed_broken_0" {
		t.Fatalf("failing node not reported: %v", err)
	}

	if _, _, err := out.Pull(); !IsCode(err, CodeDrain) {
		t.Fatalf("expected DRAIN, got %v", err)
	}
	if _, status, err := out.Pull(); err != nil || status != StatusWouldBlock {
		t.Fatalf("drain error should be reported once, got %s %v", status, err)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	g, err := New("null", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if err := g.Configure(testPattern(5)); err != nil {
		t.Fatal(err)
	}
	in := g.Inputs()[0]
	if err := g.Close(); err != nil {
		t.Fatal(err)
	}
	if err := g.Close(); err != nil {
		t.Fatal(err)
	}
	if err := in.Push(nil); !IsCode(err, CodeFeed) {
		t.Fatalf("push after close should fail, got %v", err)
	}
}

func TestErrorFormatting(t *testing.T) {
	cause := errors.New("disk full")
	err := &Error{Code: CodeSink, Op: "consume", Endpoint: "out1", Cause: cause}
	if got := err.Error(); got != "[SINK] consume out1: disk full" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(err, cause) || !err.HasCode(CodeSink) {
		t.Error("cause or code lost")
	}
	if IsCode(cause, CodeSink) {
		t.Error("plain errors carry no code")
	}
}
