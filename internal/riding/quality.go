package riding

// AssessSample buckets a single network sample into a quality tier. Only
// one signal source is consulted: signal strength wins over packet loss.
func AssessSample(sample *NetworkSample) Quality {
	if sample == nil {
		return QualityUnknown
	}
	if !sample.Connected {
		return QualityPoor
	}

	if sample.SignalStrength != nil {
		switch signal := *sample.SignalStrength; {
		case signal < 20:
			return QualityPoor
		case signal < 50:
			return QualityFair
		case signal < 80:
			return QualityGood
		default:
			return QualityExcellent
		}
	}

	if sample.PacketLossPercentage != nil {
		switch loss := *sample.PacketLossPercentage; {
		case loss > 10:
			return QualityPoor
		case loss > 5:
			return QualityFair
		}
	}

	return QualityGood
}

// RecommendFor maps a quality tier onto the transmission advice sent to
// the client.
func RecommendFor(q Quality) Recommendation {
	switch q {
	case QualityUnknown:
		return Recommendation{
			Action:   "OFFLINE_MODE",
			Message:  "Network status is unknown. Switching to offline mode.",
			Priority: PriorityHigh,
		}
	case QualityPoor:
		return Recommendation{
			Action:   "REDUCE_FREQUENCY",
			Message:  "Network is unstable. Reducing data transmission frequency.",
			Priority: PriorityMedium,
		}
	case QualityFair:
		return Recommendation{
			Action:   "MONITOR",
			Message:  "Monitoring network status.",
			Priority: PriorityLow,
		}
	case QualityGood, QualityExcellent:
		return Recommendation{
			Action:   "NORMAL",
			Message:  "Network status is good.",
			Priority: PriorityLow,
		}
	default:
		return Recommendation{
			Action:   "UNKNOWN",
			Message:  "Network status could not be determined.",
			Priority: PriorityMedium,
		}
	}
}

func (q Quality) Valid() bool {
	switch q {
	case QualityUnknown, QualityPoor, QualityFair, QualityGood, QualityExcellent:
		return true
	}
	return false
}
