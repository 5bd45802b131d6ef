// Package pipeline implements the encrypt-and-store pipeline.
//
// One invocation takes a configuration path of the form
// <scheme>://<container>/<key>, loads the configuration object it points to,
// resolves the three secrets named there (public key material, data bucket
// name, recipient), reads the source file from the data bucket, encrypts it
// for the recipient and writes the armored result next to it under
// encrypted_file_path + file_name + ".asc".
//
// Stages run strictly in sequence:
//
//	parsing_path -> loading_config -> resolving_secrets -> reading_source -> encrypting -> writing_destination
//
// The first failing stage ends the invocation with an *Error whose Kind
// selects the response. OutcomeFor turns that into a status code and message.
// Nothing is retried and nothing is written unless every earlier stage
// succeeded.
package pipeline
