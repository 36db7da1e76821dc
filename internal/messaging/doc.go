// Package messaging is the dispatch core: the connection readiness gate,
// recipient resolution, and single-message delivery with a closed failure
// taxonomy. It talks to the backend only through transport.Session.
package messaging
