package flows

// Deps groups flow dependency sets. The root Client builds this once and
// delegates session methods to the matching flow implementation.
type Deps struct {
	Login   LoginDeps
	Refresh RefreshDeps
	Hydrate HydrateDeps
	Logout  LogoutDeps
}

func warnf(warn func(string, ...any), format string, args ...any) {
	if warn != nil {
		warn(format, args...)
	}
}
