// Package adapters provide database adapter implementations for the sql engine.
//
// The adapters support three database libraries: pgxpool.Pool, sql.DB and sqlx.DB.
// All of them present the same DBAdapter interface, so the engine builds its statements once and
// executes them with whichever connection type the application already owns.
//
// Every statement is executed with bound arguments; transactions are exposed through DBTx.
package adapters
