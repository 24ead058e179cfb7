package db

// SchemaSQL contains the database schema initialization SQL.
//
// Record ids are derived from the natural keys (see ItemKeyID and friends
// in queries.go), so INSERT IGNORE gives insert-skip-duplicates and UPSERT
// gives replace-by-key semantics in a single statement. The unique indexes
// stay defined anyway: the store is the final arbiter of key uniqueness
// when two jobs race, the in-memory duplicate index is only an early
// reject.
const SchemaSQL = `
    -- ==========================================================================
    -- ITEM TABLE (inventory records, key = part_no)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS item SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS part_no ON item TYPE string;
    DEFINE FIELD IF NOT EXISTS name ON item TYPE string;
    DEFINE FIELD IF NOT EXISTS manufacturer ON item TYPE string;
    DEFINE FIELD IF NOT EXISTS description ON item TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS quantity ON item TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS location ON item TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS created_by ON item TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS updated_by ON item TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS created ON item TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS updated ON item TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS item_part_no ON item FIELDS part_no UNIQUE;

    -- ==========================================================================
    -- INDIVIDUAL TABLE (project-individual rows, key = project_code + individual_no)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS individual SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS project_code ON individual TYPE string;
    DEFINE FIELD IF NOT EXISTS individual_no ON individual TYPE string;
    DEFINE FIELD IF NOT EXISTS full_name ON individual TYPE string;
    DEFINE FIELD IF NOT EXISTS role ON individual TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS created_by ON individual TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS updated_by ON individual TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS created ON individual TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS updated ON individual TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS individual_key ON individual FIELDS project_code, individual_no UNIQUE;

    -- ==========================================================================
    -- ATTACHMENT TABLE (file metadata, key = entity + ref + name)
    -- ==========================================================================
    -- Must always agree with what is physically on disk under path.
    DEFINE TABLE IF NOT EXISTS attachment SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS entity ON attachment TYPE string;
    DEFINE FIELD IF NOT EXISTS ref ON attachment TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS name ON attachment TYPE string;
    DEFINE FIELD IF NOT EXISTS content_type ON attachment TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS size ON attachment TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS path ON attachment TYPE string;
    DEFINE FIELD IF NOT EXISTS created_by ON attachment TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS updated_by ON attachment TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS created ON attachment TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS updated ON attachment TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS attachment_key ON attachment FIELDS entity, ref, name UNIQUE;
`
