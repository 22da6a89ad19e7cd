// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/wall_robot/internal/config"
	"github.com/relabs-tech/wall_robot/internal/telemetry"
)

const publishTimeout = time.Second

// publisher is the part of mqtt.Client used for snapshots.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

func connectMQTT(broker, clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(2 * time.Second)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.WaitTimeout(10*time.Second) && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", broker, token.Error())
	}
	return client, nil
}

// RunMQTTPublisher publishes every snapshot, retained, to cfg.TopicIMU until
// ctx is cancelled.
func RunMQTTPublisher(ctx context.Context, cfg *config.Config, store *telemetry.Store) error {
	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientID)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)
	log.Printf("mqtt: publishing snapshots to %s on %s", cfg.TopicIMU, cfg.MQTTBroker)

	id, updates := store.Subscribe(16)
	defer store.Unsubscribe(id)
	publishSnapshots(ctx, client, cfg.TopicIMU, updates)
	return nil
}

func publishSnapshots(ctx context.Context, pub publisher, topic string, updates <-chan telemetry.Snapshot) {
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-updates:
			if !ok {
				return
			}
			payload, err := json.Marshal(snap)
			if err != nil {
				log.Printf("mqtt: json marshal error: %v", err)
				continue
			}
			token := pub.Publish(topic, 0, true, payload)
			if !token.WaitTimeout(publishTimeout) {
				log.Printf("mqtt: publish to %s timed out", topic)
				continue
			}
			if err := token.Error(); err != nil {
				log.Printf("mqtt: publish error (%s): %v", topic, err)
			}
		}
	}
}
