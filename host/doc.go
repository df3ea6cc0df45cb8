/*
Package host provides the execution environment for custody programs.

Every invocation runs on its own storage.MemCachedStore layered over the
persistent store. Changes reach the persistent store only when the invoked
function succeeds, so an invocation commits as a whole or not at all.

Invocations declare the storage keys they are going to read and modify.
The Host serializes invocations sharing at least one key and lets all the
others run in parallel. Keys are always locked in sorted order.

Invocation signers are identified by witnesses: secp256r1 signatures of the
invocation payload. The host verifies them before the invocation starts and
exposes the resulting script hashes through Context.CheckWitness.

A witnessed payload is executed at most once. The sha256 of every
successfully executed witnessed payload is stored along with the changes of
the invocation, and a repeated payload fails with ErrReplayedInvocation.
Payloads are expected to carry a nonce and an expiration time (see
Invocation.ValidUntil), records of expired payloads are dropped by Prune.
*/
package host
