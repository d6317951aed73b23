package store

const schemaSQL = `
CREATE TABLE IF NOT EXISTS images (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	source_ref    TEXT UNIQUE NOT NULL,
	thumbnail_ref TEXT,
	uploaded_at   TEXT NOT NULL,
	taken_at      TEXT,
	gps_lat       REAL,
	gps_lon       REAL,
	location_name TEXT,
	embedding     BLOB NOT NULL,
	metadata      TEXT
);

CREATE INDEX IF NOT EXISTS idx_images_taken_at ON images(taken_at);
CREATE INDEX IF NOT EXISTS idx_images_location_name ON images(location_name);

CREATE TABLE IF NOT EXISTS faces (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	image_id    INTEGER NOT NULL REFERENCES images(id) ON DELETE CASCADE,
	bbox        TEXT,
	encoding    BLOB,
	person_name TEXT,
	confidence  REAL
);

CREATE INDEX IF NOT EXISTS idx_faces_image_id ON faces(image_id);
CREATE INDEX IF NOT EXISTS idx_faces_person_name ON faces(person_name);

CREATE TABLE IF NOT EXISTS search_history (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	query   TEXT NOT NULL,
	results TEXT,
	ts      TEXT NOT NULL
);
`
