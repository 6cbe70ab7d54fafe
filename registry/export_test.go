package registry

func resetDefault() { installed.Store(nil) }
