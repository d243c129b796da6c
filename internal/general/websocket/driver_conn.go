package websocket

import (
	"sync"

	"github.com/gorilla/websocket"
)

// DriverState caches the last position a driver reported over this socket.
// The dispatch loop reads it to enrich offers with distance-to-pickup
// without another round trip to the database.
type DriverState struct {
	DriverID     string
	LastLocation *LocationData
	mu           sync.RWMutex
}

type LocationData struct {
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	AccuracyMeters float64 `json:"accuracy_meters"`
	SpeedKmh       float64 `json:"speed_kmh"`
	HeadingDegrees float64 `json:"heading_degrees"`
}

func (ds *DriverState) UpdateLastLocation(location *LocationData) {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	ds.LastLocation = location
}

func (ds *DriverState) GetLastLocation() *LocationData {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	return ds.LastLocation
}

func (ws *WebSocket) RegisterDriverConn(driverID string, conn *websocket.Conn) {
	ws.driverConns.Store(driverID, conn)
	ws.driverStates.Store(driverID, &DriverState{DriverID: driverID})
}

func (ws *WebSocket) GetDriverConn(driverID string) (*websocket.Conn, bool) {
	val, ok := ws.driverConns.Load(driverID)
	if !ok {
		return nil, false
	}

	return val.(*websocket.Conn), true
}

func (ws *WebSocket) Send(conn *websocket.Conn, payload []byte) error {
	return ws.wsWriteMessage(conn, websocket.TextMessage, payload)
}

// UpdateLastLocation caches the driver's freshest reported position.
func (ws *WebSocket) UpdateLastLocation(driverID string, location *LocationData) {
	if existing, ok := ws.driverStates.Load(driverID); ok {
		if state, ok := existing.(*DriverState); ok {
			state.UpdateLastLocation(location)
		}
	}
}

// LastLocationOf returns the driver's cached position, if any.
func (ws *WebSocket) LastLocationOf(driverID string) *LocationData {
	if existing, ok := ws.driverStates.Load(driverID); ok {
		if state, ok := existing.(*DriverState); ok {
			return state.GetLastLocation()
		}
	}
	return nil
}
