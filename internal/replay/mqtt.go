package replay

import (
	"fmt"

	"expohall/internal/config"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// MQTTTrigger 云端下发"立即同步"的触发通道
// 订阅指定主题，任何消息都会触发一次重放（消息体仅用于日志）
type MQTTTrigger struct {
	client mqtt.Client
	topic  string
	logger *zap.Logger
}

// StartMQTTTrigger 连接 Broker 并订阅同步主题
func StartMQTTTrigger(cfg *config.MQTTConfig, replayer *Replayer, logger *zap.Logger) (*MQTTTrigger, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	t := &MQTTTrigger{client: client, topic: cfg.Topic, logger: logger}
	if token := client.Subscribe(cfg.Topic, 1, func(_ mqtt.Client, msg mqtt.Message) {
		logger.Info("Sync trigger received via MQTT",
			zap.String("topic", msg.Topic()), zap.ByteString("payload", msg.Payload()))
		replayer.Trigger()
	}); token.Wait() && token.Error() != nil {
		client.Disconnect(250)
		return nil, fmt.Errorf("failed to subscribe to topic %s: %w", cfg.Topic, token.Error())
	}

	logger.Info("MQTT sync trigger enabled", zap.String("topic", cfg.Topic))
	return t, nil
}

// Stop 断开 MQTT 连接
func (t *MQTTTrigger) Stop() {
	t.client.Unsubscribe(t.topic)
	t.client.Disconnect(250)
}
