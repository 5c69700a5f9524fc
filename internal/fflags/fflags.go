package fflags

import (
	"fmt"
	"os"
	"strconv"

	"go.uber.org/zap"
)

// Env-backed feature flags. Good enough until a real flags backend shows
// up; the answer may eventually need to depend on who is asking.
type FFlags struct {
	logger *zap.SugaredLogger
	flags  map[string]FFlag
}

type FFlag struct {
	env          string
	defaultValue bool
}

func NewFFlags(logger *zap.SugaredLogger) *FFlags {
	return &FFlags{
		logger: logger,
		flags: map[string]FFlag{
			"project-invitations": {"BACKOFFICE_FFLAG_PROJECT_INVITATIONS", true},
			"billing":             {"BACKOFFICE_FFLAG_BILLING", true},
			"invitation-expiry":   {"BACKOFFICE_FFLAG_INVITATION_EXPIRY", true},
		},
	}
}

func (f *FFlags) getFlagValue(fflag FFlag) bool {
	if envValue, err := strconv.ParseBool(os.Getenv(fflag.env)); err == nil {
		return envValue
	}
	return fflag.defaultValue
}

// ListFlags returns every defined feature flag and whether it is enabled.
func (f *FFlags) ListFlags() map[string]bool {
	result := map[string]bool{}
	for name, fflag := range f.flags {
		result[name] = f.getFlagValue(fflag)
	}
	return result
}

// GetFlag returns whether the named feature is enabled. An error is
// returned if the flag name is unknown.
func (f *FFlags) GetFlag(flag string) (bool, error) {
	fflag, ok := f.flags[flag]
	if !ok {
		f.logger.Errorf("Invalid feature flag name: %s", flag)
		return false, fmt.Errorf("invalid feature flag name: %s", flag)
	}
	return f.getFlagValue(fflag), nil
}
