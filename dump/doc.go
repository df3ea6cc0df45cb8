/*
Package dump collects and persists the state of the custody vault.

Collect walks vaults, balance records and token accounts of the store and
compares each balance mirror with the amount its custody account actually
holds. Records whose mirror differs from the ledger are reported by
Snapshot.Stale.

Creator saves the collected snapshot in human-readable form together with
raw storage items, so the state can be audited later or restored into
another store via Reader.
*/
package dump
