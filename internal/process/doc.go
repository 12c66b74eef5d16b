// Package process runs external tools such as ffmpeg as subprocesses.
//
// A Process is started with Run and stopped by canceling the context:
//   - SIGINT is sent first, SIGKILL after the graceful timeout
//   - stdout and stderr are logged line by line through a pluggable LogParser
//   - commands are parsed with shell-style quoting but never run by a shell
//
// Example:
//
//	p := process.NewProcess("encode", "ffmpeg -i in.yuv out.mp4", logger)
//	p.SetLogParser(logging.GetLogger("ffmpeg"), ffmpeg.ParseLogLine)
//	if code, err := p.Run(ctx); err != nil || code != 0 { ... }
package process
