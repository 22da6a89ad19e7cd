package app

import (
	"context"
	"encoding/json"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/wall_robot/internal/config"
	"github.com/relabs-tech/wall_robot/internal/telemetry"
)

// RunConsoleMQTT prints the snapshots the robot publishes until ctx is
// cancelled.
func RunConsoleMQTT(ctx context.Context, cfg *config.Config) error {
	if cfg.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is not set")
	}
	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDConsole)
	if err != nil {
		return err
	}
	log.Printf("console: connected to MQTT broker at %s", cfg.MQTTBroker)

	token := client.Subscribe(cfg.TopicIMU, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var snap telemetry.Snapshot
		if err := json.Unmarshal(msg.Payload(), &snap); err != nil {
			log.Printf("console: snapshot unmarshal error: %v", err)
			return
		}
		fmt.Println(formatSnapshot(snap))
	})
	token.Wait()
	if token.Error() != nil {
		client.Disconnect(250)
		return token.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicIMU)

	<-ctx.Done()

	log.Println("console: shutting down")
	client.Disconnect(250)
	return nil
}

// formatSnapshot renders the full snapshot on one line.
func formatSnapshot(s telemetry.Snapshot) string {
	line := formatAttitude(s)
	if s.Roll != nil && s.Pitch != nil && s.Yaw != nil {
		line += fmt.Sprintf(" | ROLL=%6.2f PITCH=%6.2f YAW=%6.2f", *s.Roll, *s.Pitch, *s.Yaw)
	}
	if s.Accel != nil {
		line += fmt.Sprintf(" | ax=%5.2f ay=%5.2f az=%5.2f", s.Accel.X, s.Accel.Y, s.Accel.Z)
	}
	return line
}
