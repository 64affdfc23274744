package backend

// Descriptor declares metadata about a backend kind. It is registered
// alongside the kind's Factory so callers can make decisions about a
// configured backend before building it.
type Descriptor struct {
	// Module is the module name configuration may use to qualify the kind.
	// If empty, DefaultModuleName is assumed.
	Module string

	// Database marks kinds that persist into a SQL table. Stores inject
	// table and key column defaults into the configuration of these kinds.
	Database bool

	// Description is a one-line human-readable summary.
	Description string
}

// module returns the module the kind is registered under.
func (d Descriptor) module() string {
	if d.Module == "" {
		return DefaultModuleName
	}
	return d.Module
}
