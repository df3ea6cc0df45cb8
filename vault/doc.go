/*
Package vault implements the custodial value-vault.

A manager initializes the vault once. Depositors move tokens of any asset
from their token accounts into custody accounts of the vault and withdraw
them later. Each (vault, asset, depositor) triple has its own custody token
account and balance record. Both addresses are derived (see package
custody), and the custody account is owned by a derived signing authority,
so only this program can move the funds out of it, and only on withdrawal
witnessed by the depositor.

After each transfer the balance record (mirror) is refreshed from the token
ledger. A failed refresh doesn't fail the operation since the transfer is
already done; the mirror is left stale and the condition is logged.

Notifications

Initialize notification. Produced once per vault.

	Initialize:
	  - name: vault
	    type: Hash160
	  - name: manager
	    type: Hash160

Deposit notification.

	Deposit:
	  - name: vault
	    type: Hash160
	  - name: asset
	    type: Hash160
	  - name: depositor
	    type: Hash160
	  - name: amount
	    type: Integer

Withdraw notification. Same layout as Deposit.
*/
package vault
