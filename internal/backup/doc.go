// Package backup keeps rotated copies of the application database.
//
// Backups are full byte copies named
//
//	YYYYMMDD_HHMMSS_<reason>.db
//
// with a UTC timestamp and a reason reduced to letters, digits, '-' and
// '_' (at most 50 characters). The name is the only record of a backup;
// there is no index file.
//
// Rotate and List filter differently on purpose. Rotate counts every
// regular ".db" file in the directory, List shows only names that split
// into timestamp date, time and reason. A foreign ".db" file is therefore
// invisible to List but still counts toward retention. Sorted by name, one
// that sorts before the timestamps (e.g. "0-old.db") is removed first,
// while one that sorts after them (e.g. "aaa.db") is never removed and
// holds a retention slot for good.
package backup
