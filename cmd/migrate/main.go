package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/JemAndrew/football-betting-bot/internal/database/migrations"
	_ "github.com/lib/pq"
)

func main() {
	connStr := os.Getenv("WAREHOUSE_DSN")
	if connStr == "" {
		log.Fatal("WAREHOUSE_DSN not set")
	}

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		log.Fatal("connecting to warehouse:", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("closing connection: %v", err)
		}
	}()

	if err := db.Ping(); err != nil {
		log.Fatal("pinging warehouse:", err)
	}
	fmt.Println("connected to warehouse")

	sqlBytes, err := migrations.Files.ReadFile("warehouse_schema.sql")
	if err != nil {
		log.Fatal("reading embedded schema:", err)
	}

	fmt.Println("running migration...")
	if _, err := db.Exec(string(sqlBytes)); err != nil {
		log.Fatal("executing migration:", err)
	}
	fmt.Println("migration applied")

	rows, err := db.Query(`
		SELECT schema_name
		FROM information_schema.schemata
		WHERE schema_name IN ('curated', 'features', 'analytics')
		ORDER BY schema_name
	`)
	if err != nil {
		log.Fatal("checking schemas:", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Printf("closing rows: %v", err)
		}
	}()

	fmt.Println("\nschemas:")
	for rows.Next() {
		var schema string
		if err := rows.Scan(&schema); err != nil {
			log.Printf("scanning schema: %v", err)
			continue
		}
		fmt.Printf("  %s\n", schema)
	}

	rows2, err := db.Query(`
		SELECT table_schema, table_name
		FROM information_schema.tables
		WHERE table_schema IN ('curated', 'features', 'analytics')
		ORDER BY table_schema, table_name
	`)
	if err != nil {
		log.Fatal("checking tables:", err)
	}
	defer func() {
		if err := rows2.Close(); err != nil {
			log.Printf("closing rows: %v", err)
		}
	}()

	fmt.Println("\ntables:")
	currentSchema := ""
	for rows2.Next() {
		var schema, table string
		if err := rows2.Scan(&schema, &table); err != nil {
			log.Printf("scanning table: %v", err)
			continue
		}
		if schema != currentSchema {
			fmt.Printf("\n  %s:\n", schema)
			currentSchema = schema
		}
		fmt.Printf("    %s\n", table)
	}

	fmt.Println("\ndone")
}
