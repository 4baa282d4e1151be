package main

import (
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	config "github.com/avvvet/keno-services/configs"
	"github.com/avvvet/keno-services/internal/comm"
	natscli "github.com/avvvet/keno-services/internal/nats"
	"github.com/avvvet/keno-services/internal/robosvc"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

const SERVICE_NAME = "robot"

func init() {
	config.Logging(SERVICE_NAME + "_service")
	config.LoadEnv(SERVICE_NAME)
}

func main() {
	log.Printf("Starting Robot Service...")
	instanceId := config.CreateUniqueInstance(SERVICE_NAME)

	userIDs, err := parseIDs(envOr("ROBOT_USER_IDS", "1"))
	if err != nil {
		log.Fatalf("invalid ROBOT_USER_IDS: %v", err)
	}

	nc, err := natscli.Connect(SERVICE_NAME + "-" + instanceId)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer nc.Conn.Close()
	log.Infof("NATS connected at %s", nc.Url)

	fleet := robosvc.NewFleet(nc.Conn, robosvc.Config{
		UserIDs:      userIDs,
		MaxSpots:     envInt("MAX_SPOTS", 10),
		UniverseSize: envInt("UNIVERSE_SIZE", 80),
		MinBet:       int64(envInt("MIN_BET", 20)),
		MaxBet:       int64(envInt("ROBOT_MAX_BET", 200)),
		MaxDelay:     10 * time.Second,
	}, uint64(time.Now().UnixNano()))

	sub, err := nc.Conn.Subscribe(comm.SubjectEvents, func(m *nats.Msg) {
		fleet.HandleEvent(m.Data)
	})
	if err != nil {
		log.Fatalf("Failed to subscribe to %s: %v", comm.SubjectEvents, err)
	}
	log.Infof("Robot Service fully operational with %d robots", len(userIDs))

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	if err := sub.Unsubscribe(); err != nil {
		log.Warnf("unsubscribe: %v", err)
	}
	log.Infof("%s service stopped", SERVICE_NAME)
}

func parseIDs(v string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("invalid %s value %q", key, v)
	}
	return n
}
