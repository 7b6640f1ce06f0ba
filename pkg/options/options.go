package options

import (
	"github.com/spf13/pflag"
)

// IOptions is implemented by every reusable option group.
type IOptions interface {
	// Validate checks the parameters entered by the user at startup.
	Validate() []error

	// AddFlags adds the group's flags to the specified FlagSet.
	AddFlags(fs *pflag.FlagSet, prefixes ...string)
}
