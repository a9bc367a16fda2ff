package app

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gorilla/websocket"

	"github.com/pnmocap/motion_computer/internal/capture"
	"github.com/pnmocap/motion_computer/internal/config"
	"github.com/pnmocap/motion_computer/internal/fk"
	"github.com/pnmocap/motion_computer/internal/geom"
	"github.com/pnmocap/motion_computer/internal/skeleton"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // allow local tooling on other ports
	},
}

// frameView is the world-space view pushed to web clients.
type frameView struct {
	Timestamp float64              `json:"timestamp"`
	Positions map[string]geom.Vec3 `json:"positions"`
}

// RunWeb subscribes to the frame topic and serves the latest frame to
// web clients: raw on /api/frame, evaluated world positions on
// /api/positions and as a push stream on /ws.
func RunWeb() error {
	cfg := config.Get()

	var (
		mu        sync.RWMutex
		lastFrame capture.Frame
		haveFrame bool
	)

	// 1) Connect to the MQTT broker
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDWeb)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("web: connected to MQTT broker at %s", cfg.MQTTBroker)

	// 2) Subscribe to the frame topic and keep only the latest frame
	token := client.Subscribe(cfg.TopicFrames, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var f capture.Frame
		if err := json.Unmarshal(msg.Payload(), &f); err != nil {
			log.Printf("web: MQTT payload unmarshal error: %v", err)
			return
		}
		mu.Lock()
		lastFrame = f
		haveFrame = true
		mu.Unlock()
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Printf("web: subscribed to MQTT topic %s", cfg.TopicFrames)

	skel := skeleton.NewDefault()

	evaluate := func() (frameView, bool) {
		mu.RLock()
		frame := lastFrame
		ok := haveFrame
		mu.RUnlock()
		if !ok {
			return frameView{}, false
		}
		pose := skeleton.NewPose(skel)
		frame.Apply(skel, pose)
		world := make([]geom.Mat4, skel.Len())
		fk.EvaluateStream(skel, pose, world)
		view := frameView{
			Timestamp: frame.Timestamp,
			Positions: make(map[string]geom.Vec3, skel.Len()),
		}
		for i := 0; i < skel.Len(); i++ {
			view.Positions[skel.Joint(i).Name] = world[i].Translation()
		}
		return view, true
	}

	// 3) JSON API: latest raw frame
	http.HandleFunc("/api/frame", func(w http.ResponseWriter, r *http.Request) {
		mu.RLock()
		defer mu.RUnlock()

		if !haveFrame {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(lastFrame); err != nil {
			log.Printf("web: json encode error: %v", err)
		}
	})

	// 4) JSON API: latest world positions
	http.HandleFunc("/api/positions", func(w http.ResponseWriter, r *http.Request) {
		view, ok := evaluate()
		if !ok {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(view); err != nil {
			log.Printf("web: json encode error: %v", err)
		}
	})

	// 5) WebSocket push stream of world positions
	pushInterval := time.Duration(cfg.WebPushIntervalMS) * time.Millisecond
	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("web: websocket upgrade error: %v", err)
			return
		}
		defer conn.Close()
		log.Printf("web: websocket client connected from %s", r.RemoteAddr)

		ticker := time.NewTicker(pushInterval)
		defer ticker.Stop()
		for range ticker.C {
			view, ok := evaluate()
			if !ok {
				continue
			}
			if err := conn.WriteJSON(view); err != nil {
				log.Printf("web: websocket client gone: %v", err)
				return
			}
		}
	})

	// 6) Static files from ./web as the root
	fs := http.FileServer(http.Dir("web"))
	http.Handle("/", fs)

	addr := fmt.Sprintf(":%d", cfg.WebServerPort)
	log.Printf("web: server listening on %s", addr)
	return http.ListenAndServe(addr, nil)
}
