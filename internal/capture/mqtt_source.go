package capture

import (
	"encoding/json"
	"fmt"
	"log"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// inboxSize bounds the event inbox. When a poller falls behind, new
// events are dropped rather than blocking the MQTT client callback;
// the connector only cares about the freshest frame anyway.
const inboxSize = 256

// MQTTConfig names the broker and topics an MQTTSource talks to.
type MQTTConfig struct {
	Broker       string
	ClientID     string
	FrameTopic   string
	CommandTopic string
	ReplyTopic   string
}

// MQTTSource adapts an MQTT broker to the Source contract: frames
// arrive on the frame topic, command results and calibration progress
// on the reply topic, and commands go out on the command topic.
type MQTTSource struct {
	cfg    MQTTConfig
	client mqtt.Client
	inbox  chan Event
}

// commandMessage is the outbound command envelope.
type commandMessage struct {
	Command string `json:"command"`
}

// replyMessage is the inbound reply envelope. Stage "result" carries
// a final command result; everything else is calibration progress.
type replyMessage struct {
	Command   string `json:"command"`
	Stage     string `json:"stage"`
	Code      int    `json:"code"`
	Message   string `json:"message"`
	Pose      string `json:"pose"`
	Countdown int    `json:"countdown"`
	Percent   int    `json:"percent"`
}

// NewMQTTSource builds an MQTT-backed capture source.
func NewMQTTSource(cfg MQTTConfig) *MQTTSource {
	return &MQTTSource{
		cfg:   cfg,
		inbox: make(chan Event, inboxSize),
	}
}

// Connect dials the broker and subscribes the frame and reply topics.
func (s *MQTTSource) Connect() error {
	opts := mqtt.NewClientOptions().
		AddBroker(s.cfg.Broker).
		SetClientID(s.cfg.ClientID)

	s.client = mqtt.NewClient(opts)
	if token := s.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqtt connect: %w", token.Error())
	}
	log.Printf("capture: connected to MQTT broker at %s", s.cfg.Broker)

	if token := s.client.Subscribe(s.cfg.FrameTopic, 0, s.onFrame); token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqtt subscribe %s: %w", s.cfg.FrameTopic, token.Error())
	}
	if token := s.client.Subscribe(s.cfg.ReplyTopic, 0, s.onReply); token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqtt subscribe %s: %w", s.cfg.ReplyTopic, token.Error())
	}
	log.Printf("capture: subscribed to %s and %s", s.cfg.FrameTopic, s.cfg.ReplyTopic)
	return nil
}

// Disconnect closes the broker connection.
func (s *MQTTSource) Disconnect() error {
	if s.client != nil {
		s.client.Disconnect(250)
	}
	return nil
}

// Issue publishes a command to the command topic.
func (s *MQTTSource) Issue(cmd Command) error {
	payload, err := json.Marshal(commandMessage{Command: cmd.String()})
	if err != nil {
		return fmt.Errorf("marshal command: %w", err)
	}
	token := s.client.Publish(s.cfg.CommandTopic, 0, false, payload)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqtt publish %s: %w", s.cfg.CommandTopic, token.Error())
	}
	return nil
}

// Poll drains the inbox without blocking.
func (s *MQTTSource) Poll() []Event {
	var events []Event
	for {
		select {
		case ev := <-s.inbox:
			events = append(events, ev)
		default:
			return events
		}
	}
}

func (s *MQTTSource) onFrame(_ mqtt.Client, msg mqtt.Message) {
	var frame Frame
	if err := json.Unmarshal(msg.Payload(), &frame); err != nil {
		log.Printf("capture: frame payload unmarshal error: %v", err)
		return
	}
	s.deliver(FrameEvent{Frame: &frame})
}

func (s *MQTTSource) onReply(_ mqtt.Client, msg mqtt.Message) {
	var reply replyMessage
	if err := json.Unmarshal(msg.Payload(), &reply); err != nil {
		log.Printf("capture: reply payload unmarshal error: %v", err)
		return
	}

	if reply.Stage == "result" {
		cmd, ok := commandFromName(reply.Command)
		if !ok {
			log.Printf("capture: reply for unknown command %q", reply.Command)
			return
		}
		s.deliver(ResultEvent{Command: cmd, Code: reply.Code, Message: reply.Message})
		return
	}

	stage, ok := progressStage(reply.Stage)
	if !ok {
		log.Printf("capture: unknown reply stage %q", reply.Stage)
		return
	}
	s.deliver(ProgressEvent{
		Stage:     stage,
		Pose:      reply.Pose,
		Countdown: reply.Countdown,
		Percent:   reply.Percent,
	})
}

func (s *MQTTSource) deliver(ev Event) {
	select {
	case s.inbox <- ev:
	default:
		log.Printf("capture: inbox full, dropping event")
	}
}

func commandFromName(name string) (Command, bool) {
	switch name {
	case CmdStartCapture.String():
		return CmdStartCapture, true
	case CmdStopCapture.String():
		return CmdStopCapture, true
	case CmdCalibrate.String():
		return CmdCalibrate, true
	}
	return 0, false
}

func progressStage(stage string) (CalibrationState, bool) {
	switch stage {
	case "prepare":
		return CalibPreparing, true
	case "countdown":
		return CalibCountdown, true
	case "progress":
		return CalibInProgress, true
	}
	return 0, false
}
