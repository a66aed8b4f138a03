package transfer

// Decide selects the transfer plan for a file. Pure: no I/O, no state.
//
// The rule order encodes the core safety invariant: once a file exceeds
// the ceiling, a full transfer only happens when the caller explicitly
// forces it — never by default. An explicit strategy always overrides the
// over-ceiling auto-reject.
func Decide(meta FileMetadata, req Request) Plan {
	// Below the ceiling nothing needs special handling.
	if meta.Size <= req.SizeCeiling {
		return Plan{Kind: PlanFull}
	}

	switch req.Strategy {
	case StrategyForce:
		return Plan{Kind: PlanForced}

	case StrategyPartial:
		return Plan{Kind: PlanChunked, Offset: req.Offset, Length: req.ChunkLength()}

	case StrategyConvertToText:
		if !meta.Mime.SupportsTextConversion() {
			return Plan{Kind: PlanRejected, Reason: "unsupported for text conversion"}
		}
		return Plan{Kind: PlanTextConversion}

	case StrategyCompress:
		return Plan{Kind: PlanCompressed}

	default: // auto
		return Plan{Kind: PlanRejected, Reason: "exceeds size limit; specify a strategy"}
	}
}
