package pump

import (
	"time"

	"github.com/smazurov/framegraph/internal/events"
	"github.com/smazurov/framegraph/internal/graph"
)

// Flush pushes end of stream into every input and drains every output until
// it reports end of stream or has nothing more to give. It is skipped after a
// fatal failure and may be called more than once.
func (p *Pump) Flush() (int, error) {
	if p.state.Failed {
		p.logger.Warn("Skipping flush after failure")
		return 0, nil
	}

	for _, in := range p.g.Inputs() {
		if err := in.Push(nil); err != nil {
			p.stats.FeedErrors++
			p.endpointError(in.Name(), "feed", err)
		}
		p.endpointEOF(in.Name(), "input")
	}

	drained := 0
	for i, out := range p.g.Outputs() {
	pull:
		for {
			f, status, err := out.Pull()
			if err != nil {
				p.stats.DrainErrors++
				p.endpointError(out.Name(), "drain", err)
				break
			}
			switch status {
			case graph.StatusReady:
				if err := p.consume(i, out, f); err != nil {
					p.state.Failed = true
					return drained, err
				}
				drained++
			case graph.StatusEOF:
				p.endpointEOF(out.Name(), "output")
				break pull
			default:
				p.logger.Warn("Output still blocked after flush", "endpoint", out.Name())
				break pull
			}
		}
	}

	p.stats.FlushDrained += drained
	p.logger.Info("Flush completed", "frames_drained", drained)
	p.publish(events.FlushCompletedEvent{
		GraphID:       p.g.ID(),
		FramesDrained: drained,
		Timestamp:     time.Now().Format(time.RFC3339),
	})
	return drained, nil
}
