package flow

import "github.com/slicebox/dicom-streams-go/dicompart"

// startEvent intercepts the single StartMarker that Create's pipeline driver
// prepends to every stream and turns it into exactly one onStart call,
// whatever its position among other composed mix-ins. The marker itself
// never reaches next; this is the source's "does not leak downstream".
type startEvent struct {
	Callbacks
	onStart func() ([]dicompart.Part, error)
	fired   bool
}

// StartEvent runs onStart exactly once, at the beginning of the stream, and
// forwards everything else to next unchanged.
func StartEvent(next Callbacks, onStart func() ([]dicompart.Part, error)) Callbacks {
	return &startEvent{Callbacks: next, onStart: onStart}
}

func (s *startEvent) OnPart(p dicompart.Part) ([]dicompart.Part, error) {
	if _, ok := p.(dicompart.StartMarker); ok {
		if s.fired {
			return nil, nil
		}
		s.fired = true
		if s.onStart == nil {
			return nil, nil
		}
		return s.onStart()
	}
	return s.Callbacks.OnPart(p)
}

// endEvent is the mirror of startEvent at stream termination.
type endEvent struct {
	Callbacks
	onEnd func() ([]dicompart.Part, error)
	fired bool
}

// EndEvent runs onEnd exactly once, at the end of the stream.
func EndEvent(next Callbacks, onEnd func() ([]dicompart.Part, error)) Callbacks {
	return &endEvent{Callbacks: next, onEnd: onEnd}
}

func (e *endEvent) OnPart(p dicompart.Part) ([]dicompart.Part, error) {
	if _, ok := p.(dicompart.EndMarker); ok {
		if e.fired {
			return nil, nil
		}
		e.fired = true
		if e.onEnd == nil {
			return nil, nil
		}
		return e.onEnd()
	}
	return e.Callbacks.OnPart(p)
}
