// Package message sends and receives encrypted chat messages.
//
// Outgoing text is sealed with the chat's session key and posted to the relay.
// Incoming batches are opened one message at a time; a message that fails to
// open is kept with a placeholder text so the rest of the batch still renders.
package message
