// Command dimctl operates on a dimension store: it resolves and prints
// dimensions, runs cascading deletes, seeds fixtures and relays
// invalidations published by other processes.
package main

func main() {
	Execute()
}
