package main

import (
	"flag"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"cardroom-server/internal/config"
	"cardroom-server/internal/jwt"
	"cardroom-server/pkg/db"
)

var command = flag.String("c", "", "specifies the command (sign-jwt, create-table, add-account)")

var accountID = flag.String("account-id", "", "account identifier")
var tableUUID = flag.String("table-uuid", "", "table identifier")
var seat = flag.Int("seat", 0, "seat number")
var balance = flag.Int64("balance", 0, "starting balance")
var smallBlind = flag.Int64("small-blind", 1, "small blind")
var bigBlind = flag.Int64("big-blind", 2, "big blind")
var rakeBasisPoints = flag.Int64("rake-bps", 0, "rake in basis points")
var seatCount = flag.Int("seat-count", 10, "number of seats")
var minPlayers = flag.Int("min-players", 2, "minimum funded players to deal")

func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("could not load config")
	}

	switch *command {
	case "sign-jwt":
		if *accountID == "" {
			logrus.Fatal("-account-id is required")
		}

		if err := jwt.LoadKeys(cfg.JWT.PublicKey, cfg.JWT.PrivateKey); err != nil {
			logrus.WithError(err).Fatal("could not load JWT keys")
		}

		signed, err := jwt.Sign(*accountID)
		if err != nil {
			logrus.WithError(err).Fatal("could not sign JWT")
		}

		fmt.Println(signed)
	case "create-table":
		database, err := db.Connect(cfg.PGDSN)
		if err != nil {
			logrus.WithError(err).Fatal("could not connect to database")
		}

		newUUID := *tableUUID
		if newUUID == "" {
			newUUID = uuid.New().String()
		}

		const query = `
INSERT INTO table_configs (table_uuid, small_blind, big_blind, rake_basis_points, seat_count, min_players)
VALUES ($1, $2, $3, $4, $5, $6)`

		_, err = database.Exec(query, newUUID, *smallBlind, *bigBlind, *rakeBasisPoints, *seatCount, *minPlayers)
		if err != nil {
			logrus.WithError(err).Fatal("could not create table")
		}

		fmt.Println(newUUID)
	case "add-account":
		if *accountID == "" || *tableUUID == "" || *seat <= 0 {
			logrus.Fatal("-account-id, -table-uuid, and -seat are required")
		}

		database, err := db.Connect(cfg.PGDSN)
		if err != nil {
			logrus.WithError(err).Fatal("could not connect to database")
		}

		const query = `
INSERT INTO table_accounts (table_uuid, account_id, seat, balance)
VALUES ($1, $2, $3, $4)`

		_, err = database.Exec(query, *tableUUID, *accountID, *seat, *balance)
		if err != nil {
			logrus.WithError(err).Fatal("could not add account")
		}

		fmt.Printf("seated %s at table %s, seat %d\n", *accountID, *tableUUID, *seat)
	default:
		logrus.Fatalf("unknown command: %s", *command)
	}
}
