// Package cryptovault is the state engine of a cryptocurrency dashboard.
//
// It keeps a personal watchlist and a simulated portfolio, both persisted in a Store
// after every change, and values the portfolio against the latest market snapshot:
//   - Feed holds the current Snapshot of market quotes. A refresh replaces it as a
//     whole, and out of order fetch results are discarded.
//   - Watchlist and Portfolio own the user collections.
//   - ComputeStats, ValueHolding and Value are pure functions combining holdings with
//     a snapshot.
//   - Dashboard wires them together with the display currency, for the command line
//     and HTTP front ends.
//
// Amounts use Money, Quantity and Percent, exact decimal types that serialize as
// plain JSON numbers.
package cryptovault
