package log

// Name returns the sub logger's upper-cased name
func (sl *SubLogger) Name() string {
	if sl == nil {
		return ""
	}
	return sl.name
}

// SetLevels overrides the levels of this sub logger only
func (sl *SubLogger) SetLevels(l Levels) {
	if sl == nil {
		return
	}
	sl.logger.mu.Lock()
	sl.levels = l
	sl.logger.mu.Unlock()
}

// GetLevels returns the enabled levels of the sub logger
func (sl *SubLogger) GetLevels() Levels {
	if sl == nil {
		return Levels{}
	}
	sl.logger.mu.Lock()
	defer sl.logger.mu.Unlock()
	return sl.levels
}

func (sl *SubLogger) enabled(header string) bool {
	if sl == nil || sl.logger == nil {
		return false
	}
	lv := sl.GetLevels()
	switch header {
	case sl.logger.InfoHeader:
		return lv.Info
	case sl.logger.WarnHeader:
		return lv.Warn
	case sl.logger.DebugHeader:
		return lv.Debug
	case sl.logger.ErrorHeader:
		return lv.Error
	}
	return false
}
