package db

var schema = `
CREATE TABLE IF NOT EXISTS allocation_reports (
	report_id UUID PRIMARY KEY,
	exported_at TIMESTAMPTZ NOT NULL,
	orders INT NOT NULL
);

CREATE TABLE IF NOT EXISTS allocated_orders (
	report_id UUID NOT NULL REFERENCES allocation_reports (report_id),
	position INT NOT NULL,
	order_id VARCHAR(255) NOT NULL,
	processed_at TIMESTAMPTZ NOT NULL,
	lines JSONB NOT NULL,
	PRIMARY KEY (report_id, order_id)
);

CREATE TABLE IF NOT EXISTS events (
	event_id UUID PRIMARY KEY,
	published_at TIMESTAMPTZ NOT NULL,
	event_name VARCHAR(255) NOT NULL,
	event_payload JSONB NOT NULL
);
`
