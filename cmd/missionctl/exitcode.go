package main

import "github.com/dronelink-project/dronelink/transfer"

// exitCodeFor maps a command error to the exit-code convention every
// subcommand's RunE implicitly promises: Auth-kind failures are a
// security rejection, Coupling-kind failures are a timeout/coupling
// rejection, everything else is a generic failure.
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}
	if transfer.HasKind(err, transfer.KindAuth) {
		return ExitSecurity
	}
	if transfer.HasKind(err, transfer.KindCoupling) {
		return ExitCoupling
	}
	return ExitGeneric
}
