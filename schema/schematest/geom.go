package schematest

// GeomRaw is a small geometry schema covering defined, enumeration and select
// types, inheritance, aggregates, optional attributes and an inverse.
const GeomRaw = `
SCHEMA geom 'geom 1';

TYPE length = REAL;
WHERE
  nonneg : SELF >= 0.0;
END_TYPE;

TYPE surface_side = ENUMERATION OF (positive, negative, both);
END_TYPE;

TYPE place = SELECT (point, vertex);
END_TYPE;

ENTITY point;
  x, y, z : REAL;
END_ENTITY;

ENTITY vertex;
  at : point;
  label : OPTIONAL STRING;
END_ENTITY;

ENTITY edge;
  a, b : point;
END_ENTITY;

ENTITY curve ABSTRACT SUPERTYPE OF (ONEOF(line, circle));
  name : STRING;
END_ENTITY;

ENTITY line SUBTYPE OF (curve);
  start : place;
  stop : place;
END_ENTITY;

ENTITY circle SUBTYPE OF (curve);
  center : point;
  radius : length;
END_ENTITY;

ENTITY axis SUBTYPE OF (edge);
  dir : REAL;
INVERSE
  owners : SET [0:?] OF frame FOR axes;
END_ENTITY;

ENTITY frame;
  axes : SET [0:?] OF axis;
END_ENTITY;

ENTITY mesh;
  points : LIST [1:?] OF point;
  side : surface_side;
END_ENTITY;

END_SCHEMA;
`

// GeomDataRaw is an exchange document instantiating GeomRaw, including a
// complex record and an enum parameter.
const GeomDataRaw = `ISO-10303-21;
HEADER;
FILE_DESCRIPTION(('geometry fixture'), '2;1');
FILE_NAME('geom.stp', '2026-08-21T10:00:00', ('tester'), (''), 'step', '', '');
FILE_SCHEMA(('GEOM'));
ENDSEC;
DATA;
#1 = POINT(0.0, 0.0, 0.0);
#2 = POINT(1.0, 1.0, 0.0);
#3 = EDGE(#1, #2);
#4 = VERTEX(#1, $);
#5 = (CURVE('diag') LINE(#1, #4));
#6 = MESH((#1, #2), .POSITIVE.);
#7 = AXIS(#1, #2, 1.0);
#8 = FRAME((#7));
ENDSEC;
END-ISO-10303-21;
`

// UnitRaw has two schemas where the second interfaces names of the first.
const UnitRaw = `
SCHEMA base;

TYPE ident = STRING;
END_TYPE;

ENTITY item;
  id : ident;
END_ENTITY;

END_SCHEMA;

SCHEMA site;
USE FROM base (item AS part, ident);

ENTITY rack;
  slots : LIST [0:?] OF part;
  code : ident;
END_ENTITY;

END_SCHEMA;
`
