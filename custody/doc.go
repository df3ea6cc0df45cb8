/*
Package custody implements deterministic derivation of keyless accounts.

Every address produced by this package is a Hash160 of a script that starts
with the ABORT opcode followed by the program ID and the seed list. Such a
script can never pass verification, so nobody owns a private key for the
derived address. The only way to act on behalf of a derived address is to
present the seeds it was derived from (see DerivedProof); the party
accepting the proof re-derives the address using the ID of the calling
program and compares.

Derivation layout

	vault     = CreateAddress(program, VaultTag, root)
	custody   = CreateAddress(program, CustodyTag, vault, asset, depositor)
	authority = CreateAddress(program, AuthorityTag, vault, asset, depositor)
	record    = CreateAddress(program, BalanceTag, vault, asset, depositor)

Tags are distinct, so the custody account, its signing authority and the
balance record of one triple never coincide.
*/
package custody
