package realtime

import (
	"fmt"
	"log"

	"github.com/gofiber/contrib/websocket"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"crmhub/metrics"
)

// HandleWebSocket serves one relay connection. It validates the JWT handed
// over as a query parameter, joins the broadcast set, and echoes every
// well-formed client event to all other connections verbatim.
func HandleWebSocket(c *websocket.Conn, hub *Hub, jwtSecret []byte) {
	defer c.Close()

	tokenStr := c.Query("token")
	if tokenStr == "" {
		log.Printf("websocket rejected: missing token")
		return
	}

	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return jwtSecret, nil
	})
	if err != nil || !token.Valid {
		log.Printf("websocket rejected: invalid token")
		return
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		log.Printf("websocket rejected: invalid token claims")
		return
	}
	userIDStr, ok := claims["user_id"].(string)
	if !ok {
		log.Printf("websocket rejected: missing user_id claim")
		return
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		log.Printf("websocket rejected: bad user_id claim: %v", err)
		return
	}

	conn := &Connection{
		ID:     uuid.New().String(),
		UserID: userID,
		Conn:   c,
		Send:   make(chan []byte, 256),
	}

	hub.RegisterConnection(conn)

	// Writer: drains the Send channel onto the socket.
	go func() {
		defer hub.UnregisterConnection(conn)

		for message := range conn.Send {
			if err := c.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("websocket write error: %v", err)
				return
			}
		}
		_ = c.WriteMessage(websocket.CloseMessage, []byte{})
	}()

	// Reader: every client event is rebroadcast to the other connections.
	// The relay does not inspect payloads beyond envelope well-formedness.
	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("websocket error: %v", err)
			}
			break
		}

		event, err := DecodeEvent(data)
		if err != nil {
			log.Printf("websocket dropped frame from %s: %v", userID, err)
			continue
		}

		metrics.IncrementEventRelayed(string(event.Topic))
		hub.BroadcastExcept(conn.ID, data)
	}

	hub.UnregisterConnection(conn)
}
