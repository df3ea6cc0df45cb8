/*
Package token implements a fungible token ledger used as the token transfer
service of custody programs.

The ledger keeps mints and token accounts in the invocation store. Each token
account belongs to a single mint and has a single owner, the only identity
allowed to move funds out of it. The owner is either a regular account,
authorized by a witness of the invocation, or a keyless derived account,
authorized by the seeds it was derived from (see custody.DerivedProof).

Ledger notifications

Transfer notification. It follows NEP-17 layout, from is Null for minted
tokens.

	Transfer:
	  - name: from
	    type: Hash160
	  - name: to
	    type: Hash160
	  - name: amount
	    type: Integer
*/
package token
