// Package encryption provides the OpenPGP engine and the stage that uses it.
//
// PGPEngine keeps a process-wide public keyring. Stage imports the key
// material supplied with each request and encrypts for a single recipient,
// restricting recipient lookup to the keys it just imported so that
// concurrent requests with different keys do not see each other's
// recipients.
//
// Output is always an ASCII-armored "PGP MESSAGE".
package encryption
