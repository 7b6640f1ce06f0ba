package interp

// Session is the interpreter state carried across commands. It lives for the
// process lifetime.
type Session struct {
	// VehicleID selects which vehicle's namespace calls target. It is
	// replaced wholesale by "set vin" and read by every data-bearing command.
	VehicleID string
}
