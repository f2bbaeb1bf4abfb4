package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is applied in order; every statement is idempotent.  Payment
// variant tables cascade from payments.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		name          VARCHAR(120) NOT NULL,
		email         VARCHAR(190) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		role          ENUM('GUEST','ADMIN','OPERATOR') NOT NULL DEFAULT 'GUEST',
		is_active     BOOLEAN NOT NULL DEFAULT TRUE,
		created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_users_email (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id         BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		user_id    BIGINT UNSIGNED NOT NULL,
		token_hash CHAR(64) NOT NULL,
		expires_at DATETIME NOT NULL,
		revoked_at DATETIME NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_refresh_tokens_hash (token_hash),
		CONSTRAINT fk_refresh_tokens_user FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS rooms (
		id                    BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		hotel_id              BIGINT UNSIGNED NOT NULL,
		number                VARCHAR(20) NOT NULL,
		floor                 INT NOT NULL,
		room_type             ENUM('SINGLE','DOUBLE','SUITE') NOT NULL,
		price_per_night_cents BIGINT NOT NULL,
		capacity              INT NOT NULL,
		description           TEXT NULL,
		UNIQUE KEY uq_rooms_hotel_number (hotel_id, number),
		CONSTRAINT chk_rooms_price CHECK (price_per_night_cents > 0),
		CONSTRAINT chk_rooms_capacity CHECK (capacity > 0)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS credit_cards (
		id               BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		user_id          BIGINT UNSIGNED NOT NULL,
		holder_name      VARCHAR(120) NOT NULL,
		masked_number    VARCHAR(32) NOT NULL,
		brand            VARCHAR(20) NOT NULL,
		expiration_year  SMALLINT NOT NULL,
		expiration_month TINYINT NOT NULL,
		created_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		KEY idx_credit_cards_user (user_id),
		CONSTRAINT fk_credit_cards_user FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS bookings (
		id              BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		room_id         BIGINT UNSIGNED NOT NULL,
		user_id         BIGINT UNSIGNED NOT NULL,
		check_in        DATE NOT NULL,
		check_out       DATE NOT NULL,
		created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		is_finished     BOOLEAN NOT NULL DEFAULT FALSE,
		guests_quantity INT NOT NULL,
		KEY idx_bookings_room_active (room_id, is_finished, check_in),
		KEY idx_bookings_user (user_id, check_in),
		CONSTRAINT fk_bookings_room FOREIGN KEY (room_id) REFERENCES rooms (id),
		CONSTRAINT fk_bookings_user FOREIGN KEY (user_id) REFERENCES users (id),
		CONSTRAINT chk_bookings_dates CHECK (check_in < check_out),
		CONSTRAINT chk_bookings_guests CHECK (guests_quantity > 0)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS payments (
		id           BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		booking_id   BIGINT UNSIGNED NOT NULL,
		payment_type TINYINT UNSIGNED NOT NULL,
		amount_cents BIGINT NOT NULL,
		is_online    BOOLEAN NOT NULL DEFAULT FALSE,
		UNIQUE KEY uq_payments_booking (booking_id),
		CONSTRAINT fk_payments_booking FOREIGN KEY (booking_id) REFERENCES bookings (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS cash_payments (
		payment_id BIGINT UNSIGNED PRIMARY KEY,
		CONSTRAINT fk_cash_payments_payment FOREIGN KEY (payment_id) REFERENCES payments (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS pix_payments (
		payment_id BIGINT UNSIGNED PRIMARY KEY,
		CONSTRAINT fk_pix_payments_payment FOREIGN KEY (payment_id) REFERENCES payments (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS card_payments (
		payment_id           BIGINT UNSIGNED PRIMARY KEY,
		installment_quantity INT NOT NULL,
		card_brand           VARCHAR(20) NULL,
		last_four_digits     CHAR(4) NULL,
		holder_name          VARCHAR(120) NULL,
		expiration_year      SMALLINT NULL,
		expiration_month     TINYINT NULL,
		credit_card_id       BIGINT UNSIGNED NULL,
		CONSTRAINT fk_card_payments_payment FOREIGN KEY (payment_id) REFERENCES payments (id) ON DELETE CASCADE,
		CONSTRAINT fk_card_payments_card FOREIGN KEY (credit_card_id) REFERENCES credit_cards (id) ON DELETE SET NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS bank_slip_payments (
		payment_id      BIGINT UNSIGNED PRIMARY KEY,
		expiration_date DATE NOT NULL,
		CONSTRAINT fk_bank_slip_payments_payment FOREIGN KEY (payment_id) REFERENCES payments (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// EnsureSchema creates any missing tables.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i+1, err)
		}
	}
	return nil
}
