// Creates the RiceLink schema. Run once against an empty database:
//
//	DB_DSN="user:pwd@tcp(localhost:3306)/ricelink?parseTime=true" go run ./scripts/migration
package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/ricelink/ricelink-golang/internal/database"
)

var statements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		role ENUM('buyer', 'seller', 'admin') NOT NULL,
		name VARCHAR(255) NOT NULL,
		email VARCHAR(255) NOT NULL UNIQUE,
		password_hash VARCHAR(255) NOT NULL,
		phone VARCHAR(32) NOT NULL,
		address TEXT NOT NULL,
		id_card_number VARCHAR(13) NULL,
		juristic_number VARCHAR(32) NULL,
		bank_account_number VARCHAR(32) NULL,
		bank_name VARCHAR(128) NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS products (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		seller_id BIGINT NOT NULL,
		name VARCHAR(255) NOT NULL,
		category VARCHAR(128) NOT NULL,
		slug VARCHAR(255) NOT NULL,
		description TEXT NOT NULL,
		quantity DECIMAL(12,2) NOT NULL,
		unit VARCHAR(32) NOT NULL DEFAULT 'ton',
		price DECIMAL(12,2) NOT NULL,
		status ENUM('available', 'sold') NOT NULL DEFAULT 'available',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		FOREIGN KEY (seller_id) REFERENCES users(id),
		INDEX idx_products_status (status)
	)`,

	`CREATE TABLE IF NOT EXISTS negotiations (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		product_id BIGINT NOT NULL,
		buyer_id BIGINT NOT NULL,
		seller_id BIGINT NOT NULL,
		original_price DECIMAL(12,2) NOT NULL,
		proposed_price DECIMAL(12,2) NOT NULL,
		counter_price DECIMAL(12,2) NULL,
		status ENUM('pending', 'countered', 'accepted', 'rejected') NOT NULL DEFAULT 'pending',
		delivery_method ENUM('seller_delivery', 'buyer_pickup') NULL,
		buyer_address TEXT NULL,
		delivery_confirmed BOOLEAN NOT NULL DEFAULT FALSE,
		delivery_counter_price DECIMAL(12,2) NULL,
		delivery_price_accepted BOOLEAN NOT NULL DEFAULT FALSE,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		FOREIGN KEY (product_id) REFERENCES products(id),
		FOREIGN KEY (buyer_id) REFERENCES users(id),
		FOREIGN KEY (seller_id) REFERENCES users(id),
		INDEX idx_negotiations_buyer (buyer_id),
		INDEX idx_negotiations_seller (seller_id)
	)`,

	`CREATE TABLE IF NOT EXISTS company_sales (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		product_id BIGINT NOT NULL,
		seller_id BIGINT NOT NULL,
		status ENUM('pending', 'negotiating', 'approved', 'rejected', 'completed') NOT NULL DEFAULT 'pending',
		negotiation_status ENUM('admin_offered', 'seller_countered') NULL,
		price_per_unit DECIMAL(12,2) NOT NULL,
		admin_counter_price_per_unit DECIMAL(12,2) NULL,
		seller_counter_price_per_unit DECIMAL(12,2) NULL,
		agreed_price_per_unit DECIMAL(12,2) NULL,
		admin_note TEXT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		FOREIGN KEY (product_id) REFERENCES products(id),
		FOREIGN KEY (seller_id) REFERENCES users(id)
	)`,

	`CREATE TABLE IF NOT EXISTS auctions (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		seller_id BIGINT NOT NULL,
		product_name VARCHAR(255) NOT NULL,
		description TEXT NOT NULL,
		starting_price DECIMAL(12,2) NOT NULL,
		min_increment DECIMAL(12,2) NOT NULL,
		duration_hours INT NOT NULL,
		status ENUM('pending', 'active', 'ended', 'rejected') NOT NULL DEFAULT 'pending',
		current_bid DECIMAL(12,2) NULL,
		highest_bidder_id BIGINT NULL,
		end_time DATETIME NULL,
		winner_id BIGINT NULL,
		reject_reason TEXT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		FOREIGN KEY (seller_id) REFERENCES users(id),
		FOREIGN KEY (highest_bidder_id) REFERENCES users(id),
		FOREIGN KEY (winner_id) REFERENCES users(id),
		INDEX idx_auctions_status_end (status, end_time)
	)`,

	`CREATE TABLE IF NOT EXISTS bids (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		auction_id BIGINT NOT NULL,
		bidder_id BIGINT NOT NULL,
		amount DECIMAL(12,2) NOT NULL,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (auction_id) REFERENCES auctions(id),
		FOREIGN KEY (bidder_id) REFERENCES users(id)
	)`,

	`CREATE TABLE IF NOT EXISTS payments (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		negotiation_id BIGINT NULL,
		company_sale_id BIGINT NULL,
		auction_id BIGINT NULL,
		buyer_id BIGINT NOT NULL,
		seller_id BIGINT NOT NULL,
		amount DECIMAL(12,2) NOT NULL,
		commission DECIMAL(12,2) NOT NULL,
		total_amount DECIMAL(12,2) NOT NULL,
		seller_amount DECIMAL(12,2) NOT NULL,
		status ENUM('pending', 'paid', 'delivering', 'received', 'completed', 'cancelled') NOT NULL DEFAULT 'pending',
		admin_verified BOOLEAN NOT NULL DEFAULT FALSE,
		payment_slip_url TEXT NULL,
		reference_id VARCHAR(26) NOT NULL UNIQUE,
		qr_code_data TEXT NOT NULL,
		seller_bank_account VARCHAR(32) NULL,
		seller_bank_name VARCHAR(128) NULL,
		payment_date DATETIME NOT NULL,
		paid_at DATETIME NULL,
		admin_verified_at DATETIME NULL,
		received_at DATETIME NULL,
		completed_at DATETIME NULL,
		seller_confirmed_at DATETIME NULL,
		FOREIGN KEY (negotiation_id) REFERENCES negotiations(id),
		FOREIGN KEY (company_sale_id) REFERENCES company_sales(id),
		FOREIGN KEY (auction_id) REFERENCES auctions(id),
		FOREIGN KEY (buyer_id) REFERENCES users(id),
		FOREIGN KEY (seller_id) REFERENCES users(id),
		UNIQUE KEY uniq_payments_negotiation (negotiation_id),
		INDEX idx_payments_status (status)
	)`,

	`CREATE TABLE IF NOT EXISTS messages (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		payment_id BIGINT NOT NULL,
		sender_id BIGINT NOT NULL,
		message TEXT NOT NULL,
		is_read BOOLEAN NOT NULL DEFAULT FALSE,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (payment_id) REFERENCES payments(id),
		FOREIGN KEY (sender_id) REFERENCES users(id),
		INDEX idx_messages_payment (payment_id)
	)`,

	`CREATE TABLE IF NOT EXISTS base_prices (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		product_name VARCHAR(255) NOT NULL,
		category VARCHAR(128) NOT NULL,
		price DECIMAL(12,2) NOT NULL,
		updated_at DATETIME NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS profile_update_requests (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		user_id BIGINT NOT NULL,
		status ENUM('pending', 'approved', 'rejected') NOT NULL DEFAULT 'pending',
		name VARCHAR(255) NOT NULL,
		phone VARCHAR(32) NOT NULL,
		address TEXT NOT NULL,
		id_card_number VARCHAR(13) NULL,
		juristic_number VARCHAR(32) NULL,
		bank_account_number VARCHAR(32) NULL,
		bank_name VARCHAR(128) NULL,
		reject_reason TEXT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(id)
	)`,

	`CREATE TABLE IF NOT EXISTS notifications (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		user_id BIGINT NOT NULL,
		message TEXT NOT NULL,
		link VARCHAR(255) NULL,
		is_read BOOLEAN NOT NULL DEFAULT FALSE,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(id),
		INDEX idx_notifications_user (user_id, is_read)
	)`,
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("WARNING: Could not find or load .env file. Relying on system environment variables.")
	}

	db, err := database.OpenDB()
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer db.Close()

	for i, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			log.Fatalf("Statement %d failed: %v", i+1, err)
		}
	}

	log.Printf("Migration done (%d statements).", len(statements))
	os.Exit(0)
}
