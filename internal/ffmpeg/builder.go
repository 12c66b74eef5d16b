package ffmpeg

import (
	"fmt"
	"strings"

	"github.com/smazurov/framegraph/internal/frame"
)

// BuildPlayCommand returns the ffplay invocation that shows a raw file.
func BuildPlayCommand(p Params) (string, error) {
	input, err := inputArgs(p)
	if err != nil {
		return "", err
	}
	return "ffplay " + input + " " + quote(p.Path), nil
}

// BuildEncodeCommand returns an ffmpeg invocation converting a raw file into
// a playable container at dst.
func BuildEncodeCommand(p Params, dst string) (string, error) {
	input, err := inputArgs(p)
	if err != nil {
		return "", err
	}

	var cmd strings.Builder
	cmd.WriteString("ffmpeg -hide_banner -loglevel level+info -nostdin -y " + input + " -i " + quote(p.Path))
	if p.Type == frame.MediaTypeVideo {
		cmd.WriteString(" -c:v libx264 -preset veryfast -pix_fmt yuv420p")
	} else {
		cmd.WriteString(" -c:a libopus -b:a 128k")
	}
	cmd.WriteString(" " + quote(dst))
	return cmd.String(), nil
}

func inputArgs(p Params) (string, error) {
	if p.Path == "" {
		return "", fmt.Errorf("ffmpeg: no input path")
	}
	switch p.Type {
	case frame.MediaTypeVideo:
		if p.Width <= 0 || p.Height <= 0 || p.PixelFormat == "" {
			return "", fmt.Errorf("ffmpeg: incomplete video params %dx%d %q", p.Width, p.Height, p.PixelFormat)
		}
		args := fmt.Sprintf("-f rawvideo -pixel_format %s -video_size %dx%d", p.PixelFormat, p.Width, p.Height)
		if p.FrameRate.Num > 0 && p.FrameRate.Den > 0 {
			args += " -framerate " + p.FrameRate.String()
		}
		return args, nil
	case frame.MediaTypeAudio:
		if p.SampleRate <= 0 || p.Channels <= 0 || p.SampleFormat == "" {
			return "", fmt.Errorf("ffmpeg: incomplete audio params %q %dHz %dch", p.SampleFormat, p.SampleRate, p.Channels)
		}
		return fmt.Sprintf("-f %s -ar %d -ch_layout %s", p.SampleFormat, p.SampleRate, channelLayout(p.Channels)), nil
	default:
		return "", fmt.Errorf("ffmpeg: cannot describe %s files", p.Type)
	}
}

func channelLayout(channels int) string {
	switch channels {
	case 1:
		return "mono"
	case 2:
		return "stereo"
	default:
		return fmt.Sprintf("%dc", channels)
	}
}

// quote wraps paths containing shell metacharacters in single quotes.
func quote(s string) string {
	if s != "" && !strings.ContainsAny(s, " \t'\"$&;|<>()*?[]\\`") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
