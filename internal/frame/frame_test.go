package frame

import "testing"

func TestNewVideoPlanes(t *testing.T) {
	f := NewVideo(PixelFormatYUV420P, 64, 36)

	if len(f.Planes) != 3 {
		t.Fatalf("expected 3 planes, got %d", len(f.Planes))
	}
	if f.Linesize[0] != 64 || f.Linesize[1] != 32 || f.Linesize[2] != 32 {
		t.Errorf("unexpected linesizes %v", f.Linesize)
	}
	if len(f.Planes[1]) != 32*18 {
		t.Errorf("chroma plane size = %d, want %d", len(f.Planes[1]), 32*18)
	}
	if !f.Complete() {
		t.Error("freshly allocated frame should be complete")
	}
}

func TestCompleteRejectsPartialFrames(t *testing.T) {
	tests := []struct {
		name  string
		frame *Frame
	}{
		{"nil", nil},
		{"missing plane", func() *Frame {
			f := NewVideo(PixelFormatYUV420P, 16, 16)
			f.Planes = f.Planes[:2]
			return f
		}()},
		{"short plane", func() *Frame {
			f := NewVideo(PixelFormatGray8, 16, 16)
			f.Planes[0] = f.Planes[0][:10]
			return f
		}()},
		{"zero size", &Frame{Type: MediaTypeVideo, PixelFormat: PixelFormatGray8}},
		{"subtitle", &Frame{Type: MediaTypeSubtitle}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.frame.Complete() {
				t.Error("expected incomplete frame")
			}
		})
	}
}

func TestCloneIsDeep(t *testing.T) {
	f := NewAudio(SampleFormatS16, 48000, 2, 4)
	f.Planes[0][0] = 7

	c := f.Clone()
	c.Planes[0][0] = 9

	if f.Planes[0][0] != 7 {
		t.Error("clone shares plane memory with original")
	}
	if c.SampleRate != 48000 || c.Channels != 2 {
		t.Errorf("clone lost metadata: %v", c)
	}
}

func TestParamsMatches(t *testing.T) {
	f := NewVideo(PixelFormatYUV420P, 32, 32)
	p := ParamsOf(f)

	if !p.Matches(f) {
		t.Error("params derived from a frame should match it")
	}
	if p.Matches(NewVideo(PixelFormatYUV420P, 16, 32)) {
		t.Error("different width should not match")
	}
	if p.Matches(NewAudio(SampleFormatS16, 48000, 1, 1)) {
		t.Error("audio frame should not match video params")
	}
}

func TestParsePixelFormat(t *testing.T) {
	if pf, err := ParsePixelFormat("yuv420p"); err != nil || pf != PixelFormatYUV420P {
		t.Errorf("ParsePixelFormat(yuv420p) = %v, %v", pf, err)
	}
	if _, err := ParsePixelFormat("rgb48"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestCheckImageSize(t *testing.T) {
	tests := []struct {
		w, h    int
		wantErr bool
	}{
		{1280, 720, false},
		{7680, 4320, false},
		{1, 1, false},
		{0, 720, true},
		{1280, -1, true},
		{200000, 200000, true},
		{1 << 28, 1, true},
	}
	for _, tt := range tests {
		if err := CheckImageSize(tt.w, tt.h); (err != nil) != tt.wantErr {
			t.Errorf("CheckImageSize(%d, %d) = %v, wantErr %v", tt.w, tt.h, err, tt.wantErr)
		}
	}
}
