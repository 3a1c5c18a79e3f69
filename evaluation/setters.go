package evaluation

func SetStatus(status Status) UpdateSetter {
	return func(e *Evaluation) error {
		if !status.IsValid() {
			return ErrInvalidStatus
		}
		e.Status = status
		return nil
	}
}

func SetConfig(config Config) UpdateSetter {
	return func(e *Evaluation) error {
		e.Config = config
		return nil
	}
}

func SetTerminationReason(reason string) UpdateSetter {
	return func(e *Evaluation) error {
		e.TerminationReason = reason
		return nil
	}
}
