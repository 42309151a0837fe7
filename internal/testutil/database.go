package testutil

import (
	"database/sql"
	"fmt"
	"testing"

	_ "github.com/go-sql-driver/mysql"
)

// SetupTestDB configura una base de datos de prueba
// Espera que exista una BD MySQL en localhost:3306 llamada 'comanda_test'
func SetupTestDB(t *testing.T) *sql.DB {
	dsn := "root:@tcp(localhost:3306)/comanda_test?parseTime=true"
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	// Verify connection
	err = db.Ping()
	if err != nil {
		t.Skipf("test database not available: %v", err)
	}

	return db
}

// CleanupTestDB limpia la BD de prueba
func CleanupTestDB(t *testing.T, db *sql.DB) {
	if db == nil {
		return
	}

	tables := []string{"AddonAttachments", "OrderLines", "Orders", "Addons", "MenuItems", "VenueConfig"}
	for _, table := range tables {
		_, err := db.Exec(fmt.Sprintf("DELETE FROM %s", table))
		if err != nil {
			t.Logf("failed to clean table %s: %v", table, err)
		}
	}

	db.Close()
}

// SetupTestTables crea las tablas necesarias para los tests
func SetupTestTables(t *testing.T, db *sql.DB) {
	createVenueConfigTable := `
	CREATE TABLE IF NOT EXISTS VenueConfig (
		id INT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		venueId INT NOT NULL UNIQUE,
		hasStockControl TINYINT(1) NOT NULL DEFAULT 0,
		removalPolicy VARCHAR(20) NOT NULL DEFAULT 'SUPPRESS',
		kitchenRoutingKey VARCHAR(100) NOT NULL DEFAULT '',
		createdAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updatedAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
	)`

	createMenuItemsTable := `
	CREATE TABLE IF NOT EXISTS MenuItems (
		id INT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		description TEXT,
		price DECIMAL(10,2) NOT NULL DEFAULT 0.00,
		stock INT,
		reserved_stock INT,
		venueId INT NOT NULL,
		category VARCHAR(100),
		isActive TINYINT(1) DEFAULT 1,
		isDeleted TINYINT(1) DEFAULT 0,
		hasStock TINYINT(1) DEFAULT 0,
		stockeable TINYINT(1) DEFAULT 0,
		createdAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updatedAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		INDEX idx_venue (venueId),
		INDEX idx_deleted (isDeleted)
	)`

	createAddonsTable := `
	CREATE TABLE IF NOT EXISTS Addons (
		id INT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		addonType VARCHAR(100) NOT NULL,
		price DECIMAL(10,2) NOT NULL DEFAULT 0.00,
		createdAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`

	createOrdersTable := `
	CREATE TABLE IF NOT EXISTS Orders (
		id INT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		venueId INT NOT NULL DEFAULT 1,
		status VARCHAR(50) DEFAULT 'PENDING',
		deliveryFee DECIMAL(10,2) DEFAULT 0.00,
		createdAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updatedAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		INDEX idx_venue (venueId)
	)`

	createOrderLinesTable := `
	CREATE TABLE IF NOT EXISTS OrderLines (
		id INT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		orderId INT UNSIGNED NOT NULL,
		menuItemId INT NOT NULL,
		name VARCHAR(255) NOT NULL,
		quantity INT DEFAULT 1,
		unitPrice DECIMAL(10,2) NOT NULL,
		notes VARCHAR(500) NOT NULL DEFAULT '',
		clientToken VARCHAR(36) NOT NULL DEFAULT '',
		createdAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (orderId) REFERENCES Orders(id) ON DELETE CASCADE,
		INDEX idx_order (orderId),
		INDEX idx_menu_item (menuItemId)
	)`

	createAddonAttachmentsTable := `
	CREATE TABLE IF NOT EXISTS AddonAttachments (
		id INT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		lineId INT UNSIGNED NOT NULL,
		addonId INT NOT NULL,
		addonType VARCHAR(100) NOT NULL,
		quantity INT NOT NULL DEFAULT 0,
		unitPrice DECIMAL(10,2) NOT NULL DEFAULT 0.00,
		FOREIGN KEY (lineId) REFERENCES OrderLines(id) ON DELETE CASCADE,
		INDEX idx_line (lineId)
	)`

	tables := []struct {
		name  string
		query string
	}{
		{"VenueConfig", createVenueConfigTable},
		{"MenuItems", createMenuItemsTable},
		{"Addons", createAddonsTable},
		{"Orders", createOrdersTable},
		{"OrderLines", createOrderLinesTable},
		{"AddonAttachments", createAddonAttachmentsTable},
	}

	for _, tbl := range tables {
		_, err := db.Exec(tbl.query)
		if err != nil {
			t.Logf("failed to create table %s: %v", tbl.name, err)
		}
	}
}
