package chat

// Outbound is how coordinators emit events without knowing about the
// transport. The Server implements it over the fanout pool; tests
// substitute a recorder.
type Outbound interface {
	// ToRoom sends to every live connection in the room.
	ToRoom(roomID string, f *Frame)
	// ToRoomExcept sends to the room minus one connection.
	ToRoomExcept(roomID, connID string, f *Frame)
	// ToAll sends process-wide.
	ToAll(f *Frame)
	// ToClient sends to a single connection.
	ToClient(c *Client, f *Frame)
}
